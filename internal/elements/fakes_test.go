package elements

import (
	"context"
	"errors"

	"github.com/rpattn/iblockql/internal/domain"
)

// memoryStore is an in-memory implementation of the four read ports.
// It records calls so tests can assert batching and short-circuits.
type memoryStore struct {
	records     []domain.Record
	values      []domain.PropertyValueRow
	definitions []domain.PropertyDefinition
	enums       map[int64][]domain.EnumOption

	recordErr error

	recordCalls     int
	valueCalls      int
	definitionCalls int
	enumCalls       int

	lastFilter       domain.Filter
	lastValueIDs     []int64
	lastDefIDs       []int64
	lastContainerIDs []int64
}

func (m *memoryStore) FetchRecords(_ context.Context, filter domain.Filter, _ domain.QueryOptions) ([]domain.Record, error) {
	m.recordCalls++
	m.lastFilter = filter
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	var out []domain.Record
	for _, record := range m.records {
		if matchesIDFilter(record, filter) {
			out = append(out, record)
		}
	}
	return out, nil
}

// matchesIDFilter honours the "ID" key only; other keys are ignored.
func matchesIDFilter(record domain.Record, filter domain.Filter) bool {
	raw, ok := filter["ID"]
	if !ok {
		return true
	}
	switch v := raw.(type) {
	case int64:
		return record.ID == v
	case []int64:
		for _, id := range v {
			if id == record.ID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (m *memoryStore) FetchPropertyValues(_ context.Context, ids []int64) ([]domain.PropertyValueRow, error) {
	m.valueCalls++
	m.lastValueIDs = ids
	wanted := toSet(ids)
	var out []domain.PropertyValueRow
	for _, row := range m.values {
		if _, ok := wanted[row.RecordID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryStore) FetchPropertyDefinitions(_ context.Context, ids []int64) ([]domain.PropertyDefinition, error) {
	m.definitionCalls++
	m.lastDefIDs = ids
	wanted := toSet(ids)
	var out []domain.PropertyDefinition
	for _, def := range m.definitions {
		if _, ok := wanted[def.ID]; ok {
			out = append(out, def)
		}
	}
	return out, nil
}

func (m *memoryStore) FetchEnumOptions(_ context.Context, containerIDs []int64) ([]domain.EnumOption, error) {
	m.enumCalls++
	m.lastContainerIDs = containerIDs
	var out []domain.EnumOption
	for _, id := range containerIDs {
		out = append(out, m.enums[id]...)
	}
	return out, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) totalCalls() int {
	return m.recordCalls + m.valueCalls + m.definitionCalls + m.enumCalls
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var errBackend = errors.New("backend down")

func record(id int64, fields ...domain.Field) domain.Record {
	all := append([]domain.Field{{Name: "ID", Value: id}}, fields...)
	return domain.Record{ID: id, ContainerID: 1, Fields: all}
}

func newTestService(store *memoryStore) *Service {
	return NewStoreService(store, nil, DefaultOptions())
}
