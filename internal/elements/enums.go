package elements

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rpattn/iblockql/internal/domain"
)

// EnumTable maps a lowercased property code to enum option labels keyed by
// the option id as stored in property values.
type EnumTable map[string]map[string]string

// Lookup returns the label of a raw stored value.
func (t EnumTable) Lookup(code, raw string) (string, bool) {
	options, ok := t[code]
	if !ok {
		return "", false
	}
	label, ok := options[strings.TrimSpace(raw)]
	return label, ok
}

func (s *Service) resolveEnums(ctx context.Context, codes map[string]struct{}, containerIDs []int64) (EnumTable, error) {
	table := EnumTable{}
	if len(codes) == 0 || len(containerIDs) == 0 {
		return table, nil
	}

	options, err := s.enums.FetchEnumOptions(ctx, uniqueIDs(containerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load enum options: %w", err)
	}

	for _, option := range options {
		code := strings.ToLower(strings.TrimSpace(option.PropertyCode))
		if _, ok := codes[code]; !ok {
			continue
		}
		labels, ok := table[code]
		if !ok {
			labels = make(map[string]string)
			table[code] = labels
		}
		labels[strconv.FormatInt(option.ID, 10)] = option.Value
	}
	return table, nil
}

// applyEnums replaces stored option ids with their labels in place.
// A value with no matching option is kept as stored. List-shaped values are
// only rewritten when translateMulti is set.
func applyEnums(props domain.PropsByID, table EnumTable, translateMulti bool) {
	if len(table) == 0 {
		return
	}
	for _, recordProps := range props {
		for code, value := range recordProps {
			if _, ok := table[code]; !ok {
				continue
			}
			if value.IsMulti() && !translateMulti {
				continue
			}
			recordProps[code] = value.Map(func(raw string) string {
				if label, ok := table.Lookup(code, raw); ok {
					return label
				}
				return raw
			})
		}
	}
}
