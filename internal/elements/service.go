package elements

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/iblockql/internal/domain"
	"github.com/rpattn/iblockql/internal/repository"
)

const (
	activeField        = "ACTIVE"
	containerCodeField = "container.code"
	idField            = "ID"
)

// Options tune the pipeline.
type Options struct {
	// TranslateMultiEnums also resolves labels inside list-shaped enumerated
	// values. When false only scalar values are translated.
	TranslateMultiEnums bool
	FieldPolicy         FieldPolicy
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		TranslateMultiEnums: true,
		FieldPolicy:         DefaultFieldPolicy(),
	}
}

// Service lists elements of a container and assembles their properties.
// It holds no mutable state; concurrent calls are independent.
type Service struct {
	records     repository.RecordRepository
	values      repository.PropertyValueRepository
	definitions repository.PropertyDefinitionRepository
	enums       repository.EnumOptionRepository
	logger      *zap.Logger
	opts        Options
}

// NewService creates a service from its four read ports.
func NewService(
	records repository.RecordRepository,
	values repository.PropertyValueRepository,
	definitions repository.PropertyDefinitionRepository,
	enums repository.EnumOptionRepository,
	logger *zap.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FieldPolicy == nil {
		opts.FieldPolicy = DefaultFieldPolicy()
	}
	return &Service{
		records:     records,
		values:      values,
		definitions: definitions,
		enums:       enums,
		logger:      logger,
		opts:        opts,
	}
}

// NewStoreService creates a service reading everything from one store.
func NewStoreService(store repository.ElementStore, logger *zap.Logger, opts Options) *Service {
	return NewService(store, store, store, store, logger, opts)
}

// GlobalFilter is the predicate every read is restricted to: active
// elements of the named container.
func GlobalFilter(containerCode string) (domain.Filter, error) {
	code := strings.TrimSpace(containerCode)
	if code == "" {
		return nil, domain.ErrInvalidContainerSelector
	}
	return domain.Filter{
		activeField:        "Y",
		containerCodeField: code,
	}, nil
}

// List returns the elements of a container matching the query. Keys of the
// global filter take precedence over caller keys with the same spelling.
func (s *Service) List(ctx context.Context, containerCode string, query domain.Query, loadProps bool) (*domain.Collection, error) {
	global, err := GlobalFilter(containerCode)
	if err != nil {
		return nil, err
	}
	filter := global.Merge(query.Filter)

	fetched, err := s.records.FetchRecords(ctx, filter, query.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	records := dedupeRecords(fetched)
	s.logger.Debug("elements fetched",
		zap.String("container", containerCode),
		zap.Int("rows", len(fetched)),
		zap.Int("elements", len(records)),
	)
	if len(records) == 0 {
		return domain.NewCollection(), nil
	}

	var props domain.PropsByID
	if loadProps {
		ids := make([]int64, len(records))
		for i, record := range records {
			ids[i] = record.ID
		}
		props, err = s.LoadProperties(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	return Normalize(records, props, loadProps, s.opts.FieldPolicy), nil
}

// GetByID returns a single element of a container. found is false when the
// element does not exist or is filtered out.
func (s *Service) GetByID(ctx context.Context, containerCode string, id int64, loadProps bool) (*domain.OutputRow, bool, error) {
	global, err := GlobalFilter(containerCode)
	if err != nil {
		return nil, false, err
	}
	filter := global.Merge(domain.Filter{idField: id})

	collection, err := s.List(ctx, containerCode, domain.Query{Filter: filter}, loadProps)
	if err != nil {
		return nil, false, err
	}
	row, ok := collection.First()
	return row, ok, nil
}

// LoadProperties resolves the properties of the given elements: one query
// for values, one for definitions and at most one for enum options.
// Elements without stored values are absent from the result.
func (s *Service) LoadProperties(ctx context.Context, recordIDs []int64) (domain.PropsByID, error) {
	ids := uniqueIDs(recordIDs)
	if len(ids) == 0 {
		return domain.PropsByID{}, nil
	}

	rows, err := s.values.FetchPropertyValues(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load property values: %w", err)
	}
	agg := Aggregate(rows)
	s.logger.Debug("property values aggregated",
		zap.Int("rows", len(rows)),
		zap.Int("properties", agg.Len()),
	)
	if agg.Len() == 0 {
		return domain.PropsByID{}, nil
	}

	defs, err := s.resolveDefinitions(ctx, agg.PropertyIDs)
	if err != nil {
		return nil, err
	}
	if dropped := agg.Len() - len(defs.ordered); dropped > 0 {
		s.logger.Debug("properties without definition dropped", zap.Int("count", dropped))
	}
	props := translate(agg, defs)

	table, err := s.resolveEnums(ctx, defs.enumCodes, defs.enumContainers)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("enum options resolved",
		zap.Int("enum_properties", len(defs.enumCodes)),
		zap.Int("resolved_codes", len(table)),
	)
	applyEnums(props, table, s.opts.TranslateMultiEnums)

	return props, nil
}

// dedupeRecords keeps one record per id: the last fetched row, at the
// position of the first.
func dedupeRecords(records []domain.Record) []domain.Record {
	position := make(map[int64]int, len(records))
	out := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if i, ok := position[record.ID]; ok {
			out[i] = record
			continue
		}
		position[record.ID] = len(out)
		out = append(out, record)
	}
	return out
}
