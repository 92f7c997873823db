package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/iblockql/internal/domain"
)

// elementStore implements ElementStore on top of any SQL backend.
type elementStore struct {
	q      queryer
	schema Schema
}

// NewPostgresStore creates an element store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool, schema Schema) ElementStore {
	return &elementStore{q: pgxQueryer{pool: pool}, schema: schema}
}

// NewSQLStore creates an element store on a database/sql handle using
// question-mark placeholders (MySQL, SQLite).
func NewSQLStore(db *sql.DB, schema Schema) ElementStore {
	return &elementStore{q: sqlQueryer{db: db}, schema: schema}
}

// Ping checks that the backend is reachable.
func (s *elementStore) Ping(ctx context.Context) error {
	if err := s.q.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping element store: %w", err)
	}
	return nil
}

// FetchRecords returns element rows in the order produced by the query.
func (s *elementStore) FetchRecords(ctx context.Context, filter domain.Filter, opts domain.QueryOptions) ([]domain.Record, error) {
	query, args, err := buildRecordQuery(s.schema, s.q.Style(), filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build element query: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch elements: %w", err)
	}
	defer rows.Close()

	columns := rows.Columns()
	var records []domain.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan element row: %w", err)
		}
		record, err := s.buildRecord(columns, values)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate elements: %w", err)
	}
	return records, nil
}

func (s *elementStore) buildRecord(columns []string, values []any) (domain.Record, error) {
	record := domain.Record{Fields: make([]domain.Field, len(columns))}
	idSeen := false
	for i, col := range columns {
		value := normalizeValue(values[i])
		record.Fields[i] = domain.Field{Name: col, Value: value}

		switch {
		case strings.EqualFold(col, s.schema.Elements.ID):
			id, err := asInt64(value)
			if err != nil {
				return domain.Record{}, fmt.Errorf("failed to decode element id: %w", err)
			}
			record.ID = id
			record.Fields[i].Value = id
			idSeen = true
		case strings.EqualFold(col, s.schema.Elements.ContainerID):
			if value != nil {
				containerID, err := asInt64(value)
				if err != nil {
					return domain.Record{}, fmt.Errorf("failed to decode container id: %w", err)
				}
				record.ContainerID = containerID
			}
		}
	}
	if !idSeen {
		return domain.Record{}, fmt.Errorf("element row has no %s column", s.schema.Elements.ID)
	}
	return record, nil
}

// FetchPropertyValues returns every stored property value of the elements.
func (s *elementStore) FetchPropertyValues(ctx context.Context, recordIDs []int64) ([]domain.PropertyValueRow, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}

	query, args := buildPropertyValuesQuery(s.schema, s.q.Style(), recordIDs)
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch property values: %w", err)
	}
	defer rows.Close()

	var result []domain.PropertyValueRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan property value: %w", err)
		}
		propertyID, err := asInt64(values[0])
		if err != nil {
			return nil, fmt.Errorf("failed to decode property id: %w", err)
		}
		recordID, err := asInt64(values[1])
		if err != nil {
			return nil, fmt.Errorf("failed to decode element id: %w", err)
		}
		result = append(result, domain.PropertyValueRow{
			PropertyID: propertyID,
			RecordID:   recordID,
			Value:      asString(values[2]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property values: %w", err)
	}
	return result, nil
}

// FetchPropertyDefinitions returns the definitions of the given properties.
func (s *elementStore) FetchPropertyDefinitions(ctx context.Context, propertyIDs []int64) ([]domain.PropertyDefinition, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}

	query, args := buildPropertyDefinitionsQuery(s.schema, s.q.Style(), propertyIDs)
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch property definitions: %w", err)
	}
	defer rows.Close()

	var result []domain.PropertyDefinition
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan property definition: %w", err)
		}
		id, err := asInt64(values[0])
		if err != nil {
			return nil, fmt.Errorf("failed to decode property id: %w", err)
		}
		containerID, err := asInt64(values[3])
		if err != nil {
			return nil, fmt.Errorf("failed to decode property container id: %w", err)
		}
		result = append(result, domain.PropertyDefinition{
			ID:          id,
			Code:        asString(values[1]),
			Type:        domain.PropertyType(strings.TrimSpace(asString(values[2]))),
			ContainerID: containerID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property definitions: %w", err)
	}
	return result, nil
}

// FetchEnumOptions returns the enum options of every property owned by the containers.
func (s *elementStore) FetchEnumOptions(ctx context.Context, containerIDs []int64) ([]domain.EnumOption, error) {
	if len(containerIDs) == 0 {
		return nil, nil
	}

	query, args := buildEnumOptionsQuery(s.schema, s.q.Style(), containerIDs)
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enum options: %w", err)
	}
	defer rows.Close()

	var result []domain.EnumOption
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan enum option: %w", err)
		}
		id, err := asInt64(values[0])
		if err != nil {
			return nil, fmt.Errorf("failed to decode enum id: %w", err)
		}
		result = append(result, domain.EnumOption{
			ID:           id,
			PropertyCode: asString(values[1]),
			Value:        asString(values[2]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enum options: %w", err)
	}
	return result, nil
}

// normalizeValue converts driver byte slices to strings so rows encode as text.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v is not an int64", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer value %T", v)
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(s)
	}
}
