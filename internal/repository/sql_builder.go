package repository

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/rpattn/iblockql/internal/domain"
)

// PlaceholderStyle selects the bind parameter syntax of a backend.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// argBuilder collects bind arguments and hands out placeholders.
type argBuilder struct {
	style PlaceholderStyle
	args  []any
}

func newArgBuilder(style PlaceholderStyle) *argBuilder {
	return &argBuilder{style: style}
}

func (b *argBuilder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *argBuilder) List(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.Arg(v)
	}
	return strings.Join(parts, ", ")
}

func (b *argBuilder) Int64s(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.Arg(v)
	}
	return strings.Join(parts, ", ")
}

func (b *argBuilder) Args() []any { return b.args }

// likeEscape is not a backslash because MySQL treats backslashes in string
// literals as escapes.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

const (
	elementAlias   = "e"
	containerAlias = "c"
)

// recordQuery translates a filter and options into one SELECT over the
// element table, joining the container table when a relation field is used.
type recordQuery struct {
	schema Schema
	args   *argBuilder
	joined bool
}

func buildRecordQuery(schema Schema, style PlaceholderStyle, filter domain.Filter, opts domain.QueryOptions) (string, []any, error) {
	q := &recordQuery{schema: schema, args: newArgBuilder(style)}

	selectSQL, err := q.selectList(opts.Select)
	if err != nil {
		return "", nil, err
	}

	conditions, err := filter.Conditions()
	if err != nil {
		return "", nil, err
	}
	where := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		clause, err := q.condition(cond)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
	}

	groupBy := make([]string, 0, len(opts.Group))
	for _, name := range opts.Group {
		col, err := q.column(name)
		if err != nil {
			return "", nil, err
		}
		groupBy = append(groupBy, col)
	}

	orderBy := make([]string, 0, len(opts.Order))
	for _, order := range opts.Order {
		col, err := q.column(order.Field)
		if err != nil {
			return "", nil, err
		}
		dir, err := sortDirection(order.Direction)
		if err != nil {
			return "", nil, err
		}
		orderBy = append(orderBy, col+" "+dir)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectSQL)
	sb.WriteString(" FROM ")
	sb.WriteString(schema.Elements.Name)
	sb.WriteString(" " + elementAlias)
	if q.joined {
		fmt.Fprintf(&sb, " LEFT JOIN %s %s ON %s.%s = %s.%s",
			schema.Containers.Name, containerAlias,
			containerAlias, schema.Containers.ID,
			elementAlias, schema.Elements.ContainerID,
		)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if len(groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groupBy, ", "))
	}
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderBy, ", "))
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return "", nil, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidQuery)
	}
	switch {
	case opts.Limit > 0:
		sb.WriteString(" LIMIT " + strconv.Itoa(opts.Limit))
	case opts.Offset > 0:
		// every backend accepts OFFSET only after LIMIT
		sb.WriteString(" LIMIT " + strconv.FormatInt(math.MaxInt64, 10))
	}
	if opts.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(opts.Offset))
	}

	return sb.String(), q.args.Args(), nil
}

func (q *recordQuery) selectList(fields []string) (string, error) {
	if len(fields) == 0 {
		return elementAlias + ".*", nil
	}

	parts := make([]string, 0, len(fields)+1)
	hasID := false
	for _, name := range fields {
		if strings.TrimSpace(name) == "*" {
			parts = append(parts, elementAlias+".*")
			hasID = true
			continue
		}
		ref, err := domain.ParseFieldRef(name)
		if err != nil {
			return "", err
		}
		col, err := q.ref(ref)
		if err != nil {
			return "", err
		}
		if ref.Relation != "" {
			col += " AS " + ref.Alias()
		} else if strings.EqualFold(ref.Column, q.schema.Elements.ID) {
			hasID = true
		}
		parts = append(parts, col)
	}
	if !hasID {
		parts = append([]string{elementAlias + "." + q.schema.Elements.ID}, parts...)
	}
	return strings.Join(parts, ", "), nil
}

func (q *recordQuery) column(name string) (string, error) {
	ref, err := domain.ParseFieldRef(name)
	if err != nil {
		return "", err
	}
	return q.ref(ref)
}

func (q *recordQuery) ref(ref domain.FieldRef) (string, error) {
	if ref.Relation == "" {
		return elementAlias + "." + ref.Column, nil
	}
	if _, ok := containerRelations[ref.Relation]; !ok {
		return "", fmt.Errorf("%w: unknown relation %q", domain.ErrInvalidQuery, ref.Relation)
	}
	q.joined = true
	return containerAlias + "." + ref.Column, nil
}

func (q *recordQuery) condition(cond domain.Condition) (string, error) {
	col, err := q.ref(cond.Field)
	if err != nil {
		return "", err
	}

	if cond.Value == nil {
		switch cond.Op {
		case domain.FilterOpEqual:
			return col + " IS NULL", nil
		case domain.FilterOpNot:
			return col + " IS NOT NULL", nil
		default:
			return "", fmt.Errorf("%w: operator %q cannot compare with null on %s", domain.ErrInvalidQuery, cond.Op, cond.Field.Alias())
		}
	}

	if values, ok := expandSlice(cond.Value); ok {
		switch cond.Op {
		case domain.FilterOpEqual:
			if len(values) == 0 {
				return "1 = 0", nil
			}
			return col + " IN (" + q.args.List(values) + ")", nil
		case domain.FilterOpNot:
			if len(values) == 0 {
				return "1 = 1", nil
			}
			return col + " NOT IN (" + q.args.List(values) + ")", nil
		default:
			return "", fmt.Errorf("%w: operator %q does not accept a list on %s", domain.ErrInvalidQuery, cond.Op, cond.Field.Alias())
		}
	}

	switch cond.Op {
	case domain.FilterOpEqual:
		return col + " = " + q.args.Arg(cond.Value), nil
	case domain.FilterOpNot:
		return col + " <> " + q.args.Arg(cond.Value), nil
	case domain.FilterOpGreater, domain.FilterOpGreaterEqual, domain.FilterOpLess, domain.FilterOpLessEqual:
		return col + " " + string(cond.Op) + " " + q.args.Arg(cond.Value), nil
	case domain.FilterOpLike:
		pattern := "%" + likeEscaper.Replace(fmt.Sprint(cond.Value)) + "%"
		return col + " LIKE " + q.args.Arg(pattern) + " ESCAPE '" + likeEscape + "'", nil
	default:
		return "", fmt.Errorf("%w: unsupported operator %q", domain.ErrInvalidQuery, cond.Op)
	}
}

func sortDirection(dir domain.SortDirection) (string, error) {
	switch domain.SortDirection(strings.ToLower(string(dir))) {
	case "", domain.SortDirectionAsc:
		return "ASC", nil
	case domain.SortDirectionDesc:
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: unknown sort direction %q", domain.ErrInvalidQuery, dir)
	}
}

// expandSlice turns any slice or array value except []byte into []any.
func expandSlice(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func buildPropertyValuesQuery(schema Schema, style PlaceholderStyle, recordIDs []int64) (string, []any) {
	t := schema.PropertyValues
	args := newArgBuilder(style)
	sql := fmt.Sprintf(
		"SELECT %s, %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s",
		t.PropertyID, t.ElementID, t.Value, t.Name, t.ElementID, args.Int64s(recordIDs), t.ID,
	)
	return sql, args.Args()
}

func buildPropertyDefinitionsQuery(schema Schema, style PlaceholderStyle, propertyIDs []int64) (string, []any) {
	t := schema.Properties
	args := newArgBuilder(style)
	sql := fmt.Sprintf(
		"SELECT %s, %s, %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s",
		t.ID, t.Code, t.Type, t.ContainerID, t.Name, t.ID, args.Int64s(propertyIDs), t.ID,
	)
	return sql, args.Args()
}

func buildEnumOptionsQuery(schema Schema, style PlaceholderStyle, containerIDs []int64) (string, []any) {
	en := schema.PropertyEnums
	p := schema.Properties
	args := newArgBuilder(style)
	sql := fmt.Sprintf(
		"SELECT en.%s, p.%s, en.%s FROM %s en JOIN %s p ON p.%s = en.%s WHERE p.%s IN (%s) ORDER BY en.%s, en.%s",
		en.ID, p.Code, en.Value,
		en.Name, p.Name, p.ID, en.PropertyID,
		p.ContainerID, args.Int64s(containerIDs),
		en.Sort, en.ID,
	)
	return sql, args.Args()
}
