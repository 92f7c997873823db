package elements

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rpattn/iblockql/internal/domain"
)

// definitionSet is the resolved metadata of the properties seen in one call.
type definitionSet struct {
	ordered        []domain.PropertyDefinition
	enumCodes      map[string]struct{}
	enumContainers []int64
}

func (s *Service) resolveDefinitions(ctx context.Context, propertyIDs []int64) (definitionSet, error) {
	set := definitionSet{enumCodes: map[string]struct{}{}}
	ids := uniqueIDs(propertyIDs)
	if len(ids) == 0 {
		return set, nil
	}

	defs, err := s.definitions.FetchPropertyDefinitions(ctx, ids)
	if err != nil {
		return definitionSet{}, fmt.Errorf("failed to load property definitions: %w", err)
	}

	containers := make([]int64, 0)
	for _, def := range defs {
		set.ordered = append(set.ordered, def)
		if def.Type.IsEnumerated() {
			set.enumCodes[propertyCode(def)] = struct{}{}
			containers = append(containers, def.ContainerID)
		}
	}
	set.enumContainers = uniqueIDs(containers)
	return set, nil
}

// translate re-keys aggregated values from property id to property code.
// Properties without a definition are dropped. When two definitions share
// a code the one fetched last wins.
func translate(agg Aggregated, defs definitionSet) domain.PropsByID {
	props := make(domain.PropsByID)
	for _, def := range defs.ordered {
		byRecord, ok := agg.Values[def.ID]
		if !ok {
			continue
		}
		code := propertyCode(def)
		for recordID, value := range byRecord {
			recordProps, ok := props[recordID]
			if !ok {
				recordProps = make(domain.Props)
				props[recordID] = recordProps
			}
			recordProps[code] = value
		}
	}
	return props
}

// propertyCode is the lowercased external name, or the id when no code is set.
func propertyCode(def domain.PropertyDefinition) string {
	code := strings.ToLower(strings.TrimSpace(def.Code))
	if code == "" {
		return strconv.FormatInt(def.ID, 10)
	}
	return code
}
