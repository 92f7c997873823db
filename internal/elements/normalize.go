package elements

import (
	"strings"

	"github.com/rpattn/iblockql/internal/domain"
)

// ActionKind says what happens to a field on output.
type ActionKind int

const (
	ActionKeep ActionKind = iota
	ActionRename
	ActionDrop
)

// FieldAction is one entry of a field policy.
type FieldAction struct {
	Kind ActionKind
	Name string
}

// Rename emits the field under a new name.
func Rename(name string) FieldAction {
	return FieldAction{Kind: ActionRename, Name: name}
}

// Drop omits the field.
var Drop = FieldAction{Kind: ActionDrop}

// FieldPolicy maps lowercased source field names to their action.
// Names not in the policy are kept.
type FieldPolicy map[string]FieldAction

// DefaultFieldPolicy renames element timestamps and titles and hides
// workflow and counter columns.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{
		"timestamp_x":          Rename("modified"),
		"date_create":          Rename("created"),
		"iblock_section_id":    Rename("section_id"),
		"name":                 Rename("title"),
		"searchable_content":   Drop,
		"wf_status_id":         Drop,
		"wf_parent_element_id": Drop,
		"wf_new":               Drop,
		"wf_locked_by":         Drop,
		"wf_date_lock":         Drop,
		"wf_comments":          Drop,
		"show_counter":         Drop,
		"show_counter_start":   Drop,
	}
}

// Apply returns the output name of a field and whether it is emitted.
func (p FieldPolicy) Apply(name string) (string, bool) {
	lowered := strings.ToLower(name)
	action, ok := p[lowered]
	if !ok {
		return lowered, true
	}
	switch action.Kind {
	case ActionDrop:
		return "", false
	case ActionRename:
		return action.Name, true
	default:
		return lowered, true
	}
}

// Normalize builds the output collection. Every row starts with the
// identity key; when withProps is set the record's properties, or an empty
// map, are attached under the props key. Source rows are not modified.
func Normalize(records []domain.Record, props domain.PropsByID, withProps bool, policy FieldPolicy) *domain.Collection {
	collection := domain.NewCollection()
	for _, record := range records {
		row := domain.NewOutputRow(record.ID)
		for _, field := range record.Fields {
			name, ok := policy.Apply(field.Name)
			if !ok || name == domain.IndexKey {
				continue
			}
			row.Set(name, field.Value)
		}
		if withProps {
			recordProps, ok := props[record.ID]
			if !ok {
				recordProps = domain.Props{}
			}
			row.Set(domain.PropsKey, recordProps)
		}
		collection.Put(record.ID, row)
	}
	return collection
}
