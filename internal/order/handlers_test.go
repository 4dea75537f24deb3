package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

type memOrders struct {
	mu     sync.Mutex
	orders []Order
}

func (m *memOrders) Insert(_ context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return o, nil
}

func (m *memOrders) owned(ownerID string) []Order {
	var out []Order
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memOrders) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.owned(ownerID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memOrders) CountByOwner(_ context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owned(ownerID)), nil
}

func (m *memOrders) Latest(_ context.Context, ownerID string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.owned(ownerID)
	if len(all) == 0 {
		return Order{}, ErrNotFound
	}
	return all[0], nil
}

func (m *memOrders) GetForOwner(_ context.Context, ownerID, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id && o.OwnerID == ownerID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (m *memOrders) Get(_ context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (m *memOrders) AdvanceStatus(_ context.Context, id string, from, to Status, update FulfillmentUpdate) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.orders {
		if o.ID != id {
			continue
		}
		if o.Status != from {
			return Order{}, ErrStatusConflict
		}
		m.orders[i].Status = to
		if update.TrackingNotes != nil {
			m.orders[i].TrackingNotes = *update.TrackingNotes
		}
		if update.DeliveryAddress != nil {
			m.orders[i].DeliveryAddress = update.DeliveryAddress
		}
		return m.orders[i], nil
	}
	return Order{}, ErrNotFound
}

func seedOrders() *memOrders {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &memOrders{}
	for i, id := range []string{"o-1", "o-2", "o-3"} {
		repo.orders = append(repo.orders, Order{
			ID:            id,
			OwnerID:       "user-1",
			TotalPrice:    decimal.NewFromInt(int64(100 * (i + 1))),
			Status:        StatusPending,
			TrackingNotes: DefaultTrackingNotes,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		})
	}
	repo.orders = append(repo.orders, Order{ID: "o-other", OwnerID: "user-2", Status: StatusPending, CreatedAt: base})
	return repo
}

func newOrderRouter(repo Repository) http.Handler {
	h := &Handler{Repo: repo, Logger: zerolog.Nop()}
	f := &FulfillmentHandler{Repo: repo, Validate: validator.New(), Logger: zerolog.Nop()}
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if uid := req.Header.Get("X-Test-User"); uid != "" {
					req = req.WithContext(common.WithUserID(req.Context(), uid))
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/orders", h.List)
		r.Get("/orders/latest", h.Latest)
		r.Get("/orders/{orderId}", h.Get)
	})
	r.With(RequireFulfillmentKey("s3cret")).Patch("/fulfillment/orders/{orderId}/status", f.PatchStatus)
	return r
}

func get(t *testing.T, router http.Handler, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListNewestFirstWithPagination(t *testing.T) {
	router := newOrderRouter(seedOrders())

	rec := get(t, router, "/orders?page=1&limit=2", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	var body struct {
		Data       []Order           `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "o-3", body.Data[0].ID)
	require.Equal(t, "o-2", body.Data[1].ID)
	require.Equal(t, 3, body.Pagination.TotalItems)

	rec = get(t, router, "/orders?page=2&limit=2", "user-1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "o-1", body.Data[0].ID)
}

func TestListRequiresAuth(t *testing.T) {
	router := newOrderRouter(seedOrders())
	require.Equal(t, http.StatusUnauthorized, get(t, router, "/orders", "").Code)
}

func TestLatestAndGetAreOwnerScoped(t *testing.T) {
	router := newOrderRouter(seedOrders())

	rec := get(t, router, "/orders/latest", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "o-3", body.Data.ID)
	require.Equal(t, StatusPending, body.Data.Status)

	require.Equal(t, http.StatusNotFound, get(t, router, "/orders/latest", "user-3").Code)
	require.Equal(t, http.StatusOK, get(t, router, "/orders/o-1", "user-1").Code)
	require.Equal(t, http.StatusNotFound, get(t, router, "/orders/o-other", "user-1").Code)
}

func patchStatus(t *testing.T, router http.Handler, id, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/fulfillment/orders/"+id+"/status", strings.NewReader(body))
	if key != "" {
		req.Header.Set(FulfillmentKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestFulfillmentAdvancesOneStepAtATime(t *testing.T) {
	repo := seedOrders()
	router := newOrderRouter(repo)

	require.Equal(t, http.StatusUnauthorized, patchStatus(t, router, "o-1", "", `{"status":"confirmed"}`).Code)
	require.Equal(t, http.StatusUnauthorized, patchStatus(t, router, "o-1", "wrong", `{"status":"confirmed"}`).Code)

	rec := patchStatus(t, router, "o-1", "s3cret", `{"status":"shipped"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = patchStatus(t, router, "o-1", "s3cret", `{"status":"confirmed","trackingNotes":"Packed at hub"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ord, err := repo.Get(context.Background(), "o-1")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, ord.Status)
	require.Equal(t, "Packed at hub", ord.TrackingNotes)

	rec = patchStatus(t, router, "o-1", "s3cret", `{"status":"pending"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusBadRequest, patchStatus(t, router, "o-1", "s3cret", `{"status":"lost"}`).Code)
	require.Equal(t, http.StatusBadRequest, patchStatus(t, router, "o-1", "s3cret", `{}`).Code)
	require.Equal(t, http.StatusNotFound, patchStatus(t, router, "o-404", "s3cret", `{"status":"confirmed"}`).Code)
}

func TestFulfillmentDisabledWithoutKey(t *testing.T) {
	h := RequireFulfillmentKey("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
