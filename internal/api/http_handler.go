package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/iblockql/internal/auth"
	"github.com/rpattn/iblockql/internal/domain"
	"github.com/rpattn/iblockql/internal/elements"
	"github.com/rpattn/iblockql/internal/entityloader"
	"github.com/rpattn/iblockql/internal/export"
	"github.com/rpattn/iblockql/internal/middleware"
)

// ElementReader is the read surface served over HTTP.
type ElementReader interface {
	List(ctx context.Context, containerCode string, query domain.Query, loadProps bool) (*domain.Collection, error)
	GetByID(ctx context.Context, containerCode string, id int64, loadProps bool) (*domain.OutputRow, bool, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	reader     ElementReader
	health     Pinger
	logger     *zap.Logger
	loaderWait time.Duration
}

func NewHTTPHandler(reader ElementReader, health Pinger, logger *zap.Logger, loaderWait time.Duration) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reader: reader, health: health, logger: logger, loaderWait: loaderWait}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "/healthz":
		h.handleHealth(w, r)
	case r.Method == http.MethodPost && path == "/elements/list":
		h.handleList(w, r)
	case r.Method == http.MethodPost && path == "/elements/batch":
		h.handleBatch(w, r)
	case r.Method == http.MethodPost && path == "/elements/export":
		h.handleExport(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/elements/"):
		h.handleGet(w, r, strings.TrimPrefix(path, "/elements/"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type orderInput struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type cacheInput struct {
	TTLSeconds int  `json:"ttl"`
	CacheJoins bool `json:"cacheJoins"`
}

type listPayload struct {
	Container string         `json:"container"`
	Filter    map[string]any `json:"filter"`
	Select    []string       `json:"select"`
	Group     []string       `json:"group"`
	Order     []orderInput   `json:"order"`
	Limit     *int           `json:"limit"`
	Offset    *int           `json:"offset"`
	Cache     *cacheInput    `json:"cache"`
	LoadProps bool           `json:"loadProps"`
}

type batchPayload struct {
	Container string  `json:"container"`
	IDs       []int64 `json:"ids"`
	LoadProps bool    `json:"loadProps"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	payload, query, ok := decodeListPayload(w, r)
	if !ok {
		return
	}
	if err := auth.EnforceContainerScope(r.Context(), payload.Container); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	collection, err := h.reader.List(r.Context(), payload.Container, query, payload.LoadProps)
	if err != nil {
		h.writeError(w, "list elements", err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	payload, query, ok := decodeListPayload(w, r)
	if !ok {
		return
	}
	if err := auth.EnforceContainerScope(r.Context(), payload.Container); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	collection, err := h.reader.List(r.Context(), payload.Container, query, payload.LoadProps)
	if err != nil {
		h.writeError(w, "export elements", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCollection(&buf, collection); err != nil {
		h.writeError(w, "export elements", err)
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", sanitizeFilename(payload.Container), time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.Error(w, "expected /elements/{container}/{id}", http.StatusNotFound)
		return
	}
	container := parts[0]
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid element id: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceContainerScope(r.Context(), container); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	loadProps := parseBool(r.URL.Query().Get("props"))

	row, found, err := h.reader.GetByID(r.Context(), container, id, loadProps)
	if err != nil {
		h.writeError(w, "get element", err)
		return
	}
	if !found {
		h.writeError(w, "get element", fmt.Errorf("%w: %d", domain.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload batchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if _, err := elements.GlobalFilter(payload.Container); err != nil {
		h.writeError(w, "batch elements", err)
		return
	}
	if err := auth.EnforceContainerScope(r.Context(), payload.Container); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	loader := middleware.ElementLoaderFromContext(r.Context())
	if loader == nil {
		loader = entityloader.NewElementLoader(h.reader, h.loaderWait)
	}

	rows := make([]*domain.OutputRow, len(payload.IDs))
	var g errgroup.Group
	for i, id := range payload.IDs {
		g.Go(func() error {
			row, err := loader.Load(r.Context(), entityloader.ElementKey{
				Container: payload.Container,
				ID:        id,
				LoadProps: payload.LoadProps,
			})
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.writeError(w, "batch elements", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := h.health.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeListPayload(w http.ResponseWriter, r *http.Request) (listPayload, domain.Query, bool) {
	defer r.Body.Close()
	var payload listPayload
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return listPayload{}, domain.Query{}, false
	}
	return payload, toQuery(payload), true
}

func toQuery(payload listPayload) domain.Query {
	query := domain.Query{
		Filter: domain.Filter{},
		Options: domain.QueryOptions{
			Select: payload.Select,
			Group:  payload.Group,
		},
	}
	for key, value := range payload.Filter {
		query.Filter[key] = normalizeJSONValue(value)
	}
	for _, order := range payload.Order {
		query.Options.Order = append(query.Options.Order, domain.OrderBy{
			Field:     order.Field,
			Direction: domain.SortDirection(strings.ToLower(strings.TrimSpace(order.Direction))),
		})
	}
	if payload.Limit != nil {
		query.Options.Limit = *payload.Limit
	}
	if payload.Offset != nil {
		query.Options.Offset = *payload.Offset
	}
	if payload.Cache != nil {
		query.Options.Cache = domain.CacheOptions{
			TTL:        time.Duration(payload.Cache.TTLSeconds) * time.Second,
			CacheJoins: payload.Cache.CacheJoins,
		}
	}
	return query
}

// normalizeJSONValue turns decoded json.Number values into int64 or float64
// so drivers receive native bind parameters.
func normalizeJSONValue(v any) any {
	switch value := v.(type) {
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i
		}
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = normalizeJSONValue(item)
		}
		return out
	default:
		return value
	}
}

func (h *Handler) writeError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidContainerSelector), errors.Is(err, domain.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("request failed", zap.String("action", action), zap.Error(err))
	}
	http.Error(w, fmt.Sprintf("%s: %v", action, err), status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "elements"
	}
	return cleaned
}
