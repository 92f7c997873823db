package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/iblockql/internal/auth"
	"github.com/rpattn/iblockql/internal/domain"
	"github.com/rpattn/iblockql/internal/export"
	"github.com/rpattn/iblockql/internal/middleware"
)

// stubReader serves a fixed set of elements and mirrors the selector and
// id-filter behavior of the element service.
type stubReader struct {
	mu        sync.Mutex
	rows      map[int64]string
	listCalls int
	lastQuery domain.Query
	err       error
}

func newStubReader() *stubReader {
	return &stubReader{rows: map[int64]string{1: "first", 2: "second"}}
}

func (s *stubReader) List(_ context.Context, container string, query domain.Query, loadProps bool) (*domain.Collection, error) {
	s.mu.Lock()
	s.listCalls++
	s.lastQuery = query
	s.mu.Unlock()

	if strings.TrimSpace(container) == "" {
		return nil, domain.ErrInvalidContainerSelector
	}
	if s.err != nil {
		return nil, s.err
	}

	ids := []int64{1, 2}
	if wanted, ok := query.Filter["ID"].([]int64); ok {
		ids = wanted
	}
	collection := domain.NewCollection()
	for _, id := range ids {
		if title, ok := s.rows[id]; ok {
			collection.Put(id, s.row(id, title, loadProps))
		}
	}
	return collection, nil
}

func (s *stubReader) GetByID(ctx context.Context, container string, id int64, loadProps bool) (*domain.OutputRow, bool, error) {
	collection, err := s.List(ctx, container, domain.Query{Filter: domain.Filter{"ID": []int64{id}}}, loadProps)
	if err != nil {
		return nil, false, err
	}
	row, ok := collection.First()
	return row, ok, nil
}

func (s *stubReader) row(id int64, title string, loadProps bool) *domain.OutputRow {
	row := domain.NewOutputRow(id)
	row.Set("title", title)
	if loadProps {
		row.Set(domain.PropsKey, domain.Props{"color": domain.Multi([]string{"red", "blue"})})
	}
	return row
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(reader *stubReader, health Pinger) http.Handler {
	handler := NewHTTPHandler(reader, health, nil, 20*time.Millisecond)
	handler = middleware.DataLoaderMiddleware(reader, 20*time.Millisecond)(handler)
	return auth.ScopeMiddleware(handler)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListElements(t *testing.T) {
	reader := newStubReader()
	server := newTestServer(reader, nil)

	rec := doJSON(t, server, http.MethodPost, "/elements/list", `{
		"container": "catalog",
		"filter": {"ID": [2, 1], ">SORT": 5, "%NAME": "ph"},
		"select": ["NAME", "container.code"],
		"order": [{"field": "SORT", "direction": "DESC"}],
		"limit": 10,
		"offset": 5,
		"cache": {"ttl": 60, "cacheJoins": true},
		"loadProps": true
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"1": {"_index": 1, "title": "first", "props": {"color": ["red", "blue"]}},
		"2": {"_index": 2, "title": "second", "props": {"color": ["red", "blue"]}}
	}`, rec.Body.String())

	query := reader.lastQuery
	assert.Equal(t, []any{int64(2), int64(1)}, query.Filter["ID"])
	assert.Equal(t, int64(5), query.Filter[">SORT"])
	assert.Equal(t, "ph", query.Filter["%NAME"])
	assert.Equal(t, []string{"NAME", "container.code"}, query.Options.Select)
	assert.Equal(t, []domain.OrderBy{{Field: "SORT", Direction: domain.SortDirectionDesc}}, query.Options.Order)
	assert.Equal(t, 10, query.Options.Limit)
	assert.Equal(t, 5, query.Options.Offset)
	assert.Equal(t, domain.CacheOptions{TTL: time.Minute, CacheJoins: true}, query.Options.Cache)
}

func TestListErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   string
		header map[string]string
		status int
	}{
		{name: "blank container", body: `{"container": "  "}`, status: http.StatusBadRequest},
		{name: "malformed body", body: `{"container":`, status: http.StatusBadRequest},
		{name: "invalid query", err: domain.ErrInvalidQuery, body: `{"container": "catalog"}`, status: http.StatusBadRequest},
		{name: "store failure", err: errors.New("connection reset"), body: `{"container": "catalog"}`, status: http.StatusInternalServerError},
		{name: "outside scope", body: `{"container": "catalog"}`, header: map[string]string{auth.ScopeHeader: "news"}, status: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reader := newStubReader()
			reader.err = tc.err
			rec := doJSON(t, newTestServer(reader, nil), http.MethodPost, "/elements/list", tc.body, tc.header)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestGetElement(t *testing.T) {
	server := newTestServer(newStubReader(), nil)

	rec := doJSON(t, server, http.MethodGet, "/elements/catalog/2?props=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"_index": 2, "title": "second", "props": {"color": ["red", "blue"]}}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodGet, "/elements/catalog/2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"_index": 2, "title": "second"}`, rec.Body.String())

	rec = doJSON(t, server, http.MethodGet, "/elements/catalog/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/elements/catalog/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/elements/catalog/1", "", map[string]string{auth.ScopeHeader: "news"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBatchElementsUsesOneListCall(t *testing.T) {
	reader := newStubReader()
	server := newTestServer(reader, nil)

	rec := doJSON(t, server, http.MethodPost, "/elements/batch", `{"container": "catalog", "ids": [2, 99, 1]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `[{"_index": 2, "title": "second"}, null, {"_index": 1, "title": "first"}]`, rec.Body.String())
	assert.Equal(t, 1, reader.listCalls)
	assert.ElementsMatch(t, []int64{2, 99, 1}, reader.lastQuery.Filter["ID"])
}

func TestBatchRejectsBlankContainer(t *testing.T) {
	reader := newStubReader()
	rec := doJSON(t, newTestServer(reader, nil), http.MethodPost, "/elements/batch", `{"container": "", "ids": [1]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, reader.listCalls)
}

func TestExportElements(t *testing.T) {
	server := newTestServer(newStubReader(), nil)

	rec := doJSON(t, server, http.MethodPost, "/elements/export", `{"container": "catalog", "loadProps": true}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="catalog-`)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"_index", "title", "props.color"}, rows[0])
	assert.Equal(t, []string{"1", "first", "red, blue"}, rows[1])
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(newStubReader(), stubPinger{}), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, newTestServer(newStubReader(), stubPinger{err: errors.New("down")}), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	rec := doJSON(t, newTestServer(newStubReader(), nil), http.MethodDelete, "/elements/list", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my-catalog", sanitizeFilename("my catalog"))
	assert.Equal(t, "elements", sanitizeFilename("  "))
}
