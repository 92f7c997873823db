package repository

import (
	"context"

	"github.com/rpattn/iblockql/internal/domain"
)

// RecordRepository fetches element rows matching a filter.
type RecordRepository interface {
	FetchRecords(ctx context.Context, filter domain.Filter, opts domain.QueryOptions) ([]domain.Record, error)
}

// PropertyValueRepository fetches every stored property value of the given
// elements in a single query.
type PropertyValueRepository interface {
	FetchPropertyValues(ctx context.Context, recordIDs []int64) ([]domain.PropertyValueRow, error)
}

// PropertyDefinitionRepository fetches property metadata by id.
type PropertyDefinitionRepository interface {
	FetchPropertyDefinitions(ctx context.Context, propertyIDs []int64) ([]domain.PropertyDefinition, error)
}

// EnumOptionRepository fetches enum options of every property owned by the
// given containers.
type EnumOptionRepository interface {
	FetchEnumOptions(ctx context.Context, containerIDs []int64) ([]domain.EnumOption, error)
}

// ElementStore bundles the read ports backed by one database.
type ElementStore interface {
	RecordRepository
	PropertyValueRepository
	PropertyDefinitionRepository
	EnumOptionRepository

	Ping(ctx context.Context) error
}
