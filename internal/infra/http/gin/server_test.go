package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"staydesk/internal/app/commands"
	"staydesk/internal/app/dto"
	availabilityapp "staydesk/internal/app/handlers/availability"
	bookingapp "staydesk/internal/app/handlers/booking"
	pricingapp "staydesk/internal/app/handlers/pricing"
	"staydesk/internal/app/middleware"
	"staydesk/internal/app/outbox"
	"staydesk/internal/app/policies"
	"staydesk/internal/app/queries"
	"staydesk/internal/domain/availability"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
	"staydesk/internal/domain/tax"
	"staydesk/internal/infra/cache"
	ginserver "staydesk/internal/infra/http/gin"
	"staydesk/internal/infra/lock"
	"staydesk/internal/infra/obs"
	"staydesk/internal/infra/storage/memory"
)

const operatorKey = "front-desk-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *memory.BookingStore) {
	t.Helper()
	catalog := memory.NewCatalog()
	catalog.PutRoomType(inventory.RoomType{ID: "deluxe", Name: "Deluxe", BasePrice: money.Must("100.00", "USD"), MaxAdults: 2, MaxChildren: 2, ChildFreeAge: 6, ChildRate: money.Must("25.00", "USD")})
	catalog.PutRoom(inventory.Room{ID: "101", TypeID: "deluxe", Name: "101", Status: inventory.RoomAvailable})

	now := func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	bookings := memory.NewBookingStore()
	factory := memory.Factory{Bookings: bookings, Outbox: memory.NewOutbox()}
	checker := availability.NewChecker(time.Hour, false, now)
	locker := lock.NewLocal()
	avail := cache.NewMemory(time.Minute)
	quoter := pricingapp.Quoter{Catalog: catalog, Settings: policies.StaticSettings{Pricing: domainpricing.DefaultPolicy(), Tax: tax.DefaultConfig()}}
	effects := bookingapp.Effects{Cache: avail}

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](cmdBus, bookingapp.CreateBookingKey, &bookingapp.CreateBookingHandler{
		UoWFactory: factory, Catalog: catalog, Pricing: quoter, Checker: checker, Locker: locker,
		Encoder: outbox.JSONEventEncoder{}, Effects: effects, Now: now,
	})
	commands.RegisterHandler[bookingapp.ChangeStatusCommand, *bookingapp.ChangeStatusResult](cmdBus, bookingapp.ChangeStatusKey, &bookingapp.LifecycleHandler{
		UoWFactory: factory, Catalog: catalog, Checker: checker, Locker: locker,
		Encoder: outbox.JSONEventEncoder{}, Effects: effects, Now: now,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](queryBus, availabilityapp.CheckAvailabilityKey, &availabilityapp.CheckAvailabilityHandler{
		UoWFactory: factory, Catalog: catalog, Checker: checker, Cache: avail,
	})
	queries.RegisterHandler[pricingapp.QuoteQuery, dto.Quote](queryBus, pricingapp.QuoteKey, &pricingapp.QuoteHandler{Pricing: quoter})
	getter := &bookingapp.GetBookingHandler{UoWFactory: factory}
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.BookingRecord](queryBus, bookingapp.GetBookingKey, getter)
	queries.RegisterHandler[bookingapp.LookupBookingQuery, dto.BookingRecord](queryBus, bookingapp.LookupBookingKey, queries.HandlerFunc[bookingapp.LookupBookingQuery, dto.BookingRecord](getter.Lookup))

	commandsWithMW := middleware.ChainCommands(cmdBus,
		middleware.Validation(),
		middleware.OperatorAuthorization(operatorKey),
		middleware.Idempotency(memory.NewIdempotencyStore()),
	)
	h := ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: queryBus},
		Pricing:      ginserver.PricingHandler{Queries: queryBus},
		Booking:      ginserver.BookingHandler{Commands: commandsWithMW, Queries: queryBus},
	}
	return ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{}, h), bookings
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

type errorEnvelope struct {
	Error struct {
		Kind   string `json:"kind"`
		Code   string `json:"code"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func bookingBody(in, out string) map[string]any {
	return map[string]any{
		"room_id":   "101",
		"check_in":  in,
		"check_out": out,
		"adults":    2,
		"guest":     map[string]string{"name": "Ada Lovelace", "email": "ada@example.com"},
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	r, bookings := newRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/rooms/101/availability?check_in=2026-03-10&check_out=2026-03-12", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("availability = %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/v1/rooms/101/quote", map[string]any{"check_in": "2026-03-10", "check_out": "2026-03-12", "adults": 2}, nil)
	var quote struct {
		Tax struct {
			TotalGross struct {
				Amount string `json:"amount"`
			} `json:"total_gross"`
		} `json:"tax"`
	}
	decode(t, w, &quote)
	if w.Code != http.StatusOK || quote.Tax.TotalGross.Amount != "200.00" {
		t.Fatalf("quote = %d %s", w.Code, w.Body.String())
	}

	idem := map[string]string{ginserver.HeaderIdempotencyKey: "key-1"}
	w = do(t, r, http.MethodPost, "/api/v1/bookings", bookingBody("2026-03-10", "2026-03-12"), idem)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var created bookingapp.CreateBookingResult
	decode(t, w, &created)

	replay := do(t, r, http.MethodPost, "/api/v1/bookings", bookingBody("2026-03-10", "2026-03-12"), idem)
	var replayed bookingapp.CreateBookingResult
	decode(t, replay, &replayed)
	if replay.Code != http.StatusCreated || replayed.Booking.ID != created.Booking.ID || bookings.Len() != 1 {
		t.Fatalf("replay = %d %s (stored %d)", replay.Code, replay.Body.String(), bookings.Len())
	}

	w = do(t, r, http.MethodPost, "/api/v1/bookings", bookingBody("2026-03-11", "2026-03-13"), nil)
	var conflict errorEnvelope
	decode(t, w, &conflict)
	if w.Code != http.StatusConflict || conflict.Error.Reason != string(fault.ReasonDatesUnavailable) {
		t.Fatalf("overlap = %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/v1/bookings/"+created.Booking.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/api/v1/bookings/lookup/"+created.Token, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup = %d", w.Code)
	}

	statusPath := "/api/v1/bookings/" + created.Booking.ID + "/status"
	w = do(t, r, http.MethodPatch, statusPath, map[string]string{"status": "confirmed"}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status without operator key = %d", w.Code)
	}
	w = do(t, r, http.MethodPatch, statusPath, map[string]string{"status": "confirmed"}, map[string]string{ginserver.HeaderOperatorKey: operatorKey})
	var changed bookingapp.ChangeStatusResult
	decode(t, w, &changed)
	if w.Code != http.StatusOK || !changed.Changed || changed.Booking.Status != "confirmed" {
		t.Fatalf("confirm = %d %s", w.Code, w.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	r, _ := newRouter(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"invalid dates", http.MethodGet, "/api/v1/rooms/101/availability?check_in=2026-03-12&check_out=2026-03-10", nil, http.StatusUnprocessableEntity, "validation"},
		{"unknown room", http.MethodPost, "/api/v1/rooms/404/quote", map[string]any{"check_in": "2026-03-10", "check_out": "2026-03-12", "adults": 1}, http.StatusUnprocessableEntity, "validation"},
		{"unknown booking", http.MethodGet, "/api/v1/bookings/nope", nil, http.StatusNotFound, "not_found"},
		{"bad guest", http.MethodPost, "/api/v1/bookings", map[string]any{"room_id": "101", "check_in": "2026-03-10", "check_out": "2026-03-12", "adults": 1, "guest": map[string]string{"name": "x", "email": "not-an-email"}}, http.StatusUnprocessableEntity, "validation"},
		{"malformed body", http.MethodPost, "/api/v1/rooms/101/quote", "[]", http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		w := do(t, r, tc.method, tc.path, tc.body, nil)
		var env errorEnvelope
		decode(t, w, &env)
		if w.Code != tc.status || env.Error.Kind != tc.kind {
			t.Fatalf("%s: got %d %s", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestLockTimeoutMapsToRetryAfter(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](bus, bookingapp.CreateBookingKey,
		commands.HandlerFunc[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](func(context.Context, bookingapp.CreateBookingCommand) (*bookingapp.CreateBookingResult, error) {
			return nil, &fault.LockTimeoutError{Key: "room:101", Timeout: 1500 * time.Millisecond}
		}))
	r := ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{}, ginserver.Handlers{Booking: ginserver.BookingHandler{Commands: bus}})

	w := do(t, r, http.MethodPost, "/api/v1/bookings", bookingBody("2026-03-10", "2026-03-12"), nil)
	if w.Code != http.StatusServiceUnavailable || w.Header().Get("Retry-After") != "2" {
		t.Fatalf("lock timeout = %d, retry-after %q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestComputationErrorsAreOpaque(t *testing.T) {
	bus := queries.NewInMemoryBus()
	queries.RegisterHandler[pricingapp.QuoteQuery, dto.Quote](bus, pricingapp.QuoteKey,
		queries.HandlerFunc[pricingapp.QuoteQuery, dto.Quote](func(context.Context, pricingapp.QuoteQuery) (dto.Quote, error) {
			return dto.Quote{}, fault.Computation("load room type", context.DeadlineExceeded)
		}))
	r := ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{}, ginserver.Handlers{Pricing: ginserver.PricingHandler{Queries: bus}})

	w := do(t, r, http.MethodPost, "/api/v1/rooms/101/quote", map[string]any{"check_in": "2026-03-10", "check_out": "2026-03-12", "adults": 1}, nil)
	if w.Code != http.StatusInternalServerError || bytes.Contains(w.Body.Bytes(), []byte("deadline")) {
		t.Fatalf("computation error = %d %s", w.Code, w.Body.String())
	}
}
