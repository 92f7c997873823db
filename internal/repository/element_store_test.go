package repository

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/iblockql/internal/db"
	"github.com/rpattn/iblockql/internal/domain"
)

func newFixtureStore(t *testing.T) ElementStore {
	t.Helper()
	ctx := context.Background()

	conn, err := db.NewConnection(ctx, db.Config{Driver: db.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	require.NoError(t, db.RunScripts(ctx, conn.SQL, os.DirFS("testdata/generic"), "."))
	return NewSQLStore(conn.SQL, GenericSchema())
}

func TestElementStoreFetchRecords(t *testing.T) {
	store := newFixtureStore(t)
	ctx := context.Background()

	records, err := store.FetchRecords(ctx,
		domain.Filter{"ACTIVE": "Y", "container.code": "catalog"},
		domain.QueryOptions{Order: []domain.OrderBy{{Field: "SORT", Direction: domain.SortDirectionDesc}}},
	)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(200), records[0].ID)
	assert.Equal(t, int64(100), records[1].ID)
	assert.Equal(t, int64(1), records[0].ContainerID)

	assert.Equal(t, "id", records[0].Fields[0].Name)
	assert.Equal(t, int64(200), records[0].Fields[0].Value)
	name, ok := records[0].Get("NAME")
	require.True(t, ok)
	assert.Equal(t, "B", name)
}

func TestElementStoreFetchRecordsSelectAndPaging(t *testing.T) {
	store := newFixtureStore(t)

	records, err := store.FetchRecords(context.Background(),
		domain.Filter{"container.code": "catalog"},
		domain.QueryOptions{
			Select: []string{"name", "container.code"},
			Order:  []domain.OrderBy{{Field: "id"}},
			Limit:  2,
			Offset: 1,
		},
	)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []int64{200, 300}, []int64{records[0].ID, records[1].ID})
	var names []string
	for _, f := range records[0].Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "name", "container_code"}, names)
	code, _ := records[0].Get("container_code")
	assert.Equal(t, "catalog", code)
}

func TestElementStoreFetchRecordsMembership(t *testing.T) {
	store := newFixtureStore(t)

	records, err := store.FetchRecords(context.Background(), domain.Filter{"ID": []int64{400, 100, 999}}, domain.QueryOptions{
		Order: []domain.OrderBy{{Field: "id"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(100), records[0].ID)
	assert.Equal(t, int64(400), records[1].ID)

	records, err = store.FetchRecords(context.Background(), domain.Filter{"ID": []int64{}}, domain.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestElementStorePropertyQueries(t *testing.T) {
	store := newFixtureStore(t)
	ctx := context.Background()

	values, err := store.FetchPropertyValues(ctx, []int64{100, 200})
	require.NoError(t, err)
	assert.Equal(t, []domain.PropertyValueRow{
		{PropertyID: 1, RecordID: 100, Value: "red"},
		{PropertyID: 2, RecordID: 100, Value: "7"},
		{PropertyID: 1, RecordID: 200, Value: "red"},
		{PropertyID: 1, RecordID: 200, Value: "blue"},
		{PropertyID: 3, RecordID: 200, Value: "x"},
		{PropertyID: 99, RecordID: 100, Value: "orphan"},
	}, values)

	defs, err := store.FetchPropertyDefinitions(ctx, []int64{1, 2, 3, 99})
	require.NoError(t, err)
	assert.Equal(t, []domain.PropertyDefinition{
		{ID: 1, Code: "COLOR", Type: domain.PropertyTypeString, ContainerID: 1},
		{ID: 2, Code: "SIZE", Type: domain.PropertyTypeList, ContainerID: 1},
		{ID: 3, Code: "", Type: domain.PropertyTypeString, ContainerID: 1},
	}, defs)

	options, err := store.FetchEnumOptions(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, []domain.EnumOption{
		{ID: 7, PropertyCode: "SIZE", Value: "Large"},
		{ID: 8, PropertyCode: "SIZE", Value: "Small"},
	}, options)
}

func TestElementStoreEmptyInputsSkipQueries(t *testing.T) {
	store := newFixtureStore(t)
	ctx := context.Background()

	values, err := store.FetchPropertyValues(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, values)

	defs, err := store.FetchPropertyDefinitions(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, defs)

	options, err := store.FetchEnumOptions(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, options)

	require.NoError(t, store.Ping(ctx))
}

func TestElementStoreInvalidFilter(t *testing.T) {
	store := newFixtureStore(t)

	_, err := store.FetchRecords(context.Background(), domain.Filter{"section.code": "x"}, domain.QueryOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestElementStoreLikeMatchesWildcardsLiterally(t *testing.T) {
	store := newFixtureStore(t)

	records, err := store.FetchRecords(context.Background(), domain.Filter{"%name": "_"}, domain.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = store.FetchRecords(context.Background(), domain.Filter{"%name": "line"}, domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(400), records[0].ID)
}

func TestAsInt64(t *testing.T) {
	valid := []struct {
		in   any
		want int64
	}{
		{int64(7), 7},
		{int32(-3), -3},
		{uint64(math.MaxInt64), math.MaxInt64},
		{float64(42), 42},
		{" 12 ", 12},
		{[]byte("15"), 15},
	}
	for _, tc := range valid {
		got, err := asInt64(tc.in)
		require.NoError(t, err, "%#v", tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, in := range []any{uint64(math.MaxInt64) + 1, 1.5, math.NaN(), float64(math.MaxInt64), "x", nil} {
		_, err := asInt64(in)
		assert.Error(t, err, "%#v", in)
	}
}
