package kitchen

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/pkg/enums/role"
)

func newTestRouter(t *testing.T, f dispatcherFixture) http.Handler {
	t.Helper()
	printer, mgr := NewPrinter(nil)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r := chi.NewRouter()
	NewHandler(f.dispatcher, printer, nil).RegisterRoutes(r)
	return r
}

func TestHandlerAdvanceTicket(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		body       string
		wantStatus int
	}{
		{name: "kitchenStartsCooking", role: "kitchen", body: `{"stage":"cooking"}`, wantStatus: http.StatusOK},
		{name: "missingRole", body: `{"stage":"cooking"}`, wantStatus: http.StatusForbidden},
		{name: "skipToReady", role: "kitchen", body: `{"stage":"ready"}`, wantStatus: http.StatusConflict},
		{name: "badStage", role: "kitchen", body: `{"stage":"grill"}`, wantStatus: http.StatusBadRequest},
		{name: "badJSON", role: "kitchen", body: `stage`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatcherFixture()
			ticket, err := f.dispatcher.Derive(context.Background(), confirmedOrder("ORD-20260301-0020"))
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}

			req := httptest.NewRequest(http.MethodPost, "/kitchen/tickets/"+ticket.ID.String()+"/advance", bytes.NewBufferString(tt.body))
			if tt.role != "" {
				req.Header.Set(role.Header, tt.role)
			}
			rec := httptest.NewRecorder()
			newTestRouter(t, f).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandlerListTickets(t *testing.T) {
	f := newDispatcherFixture()
	if _, err := f.dispatcher.Derive(context.Background(), confirmedOrder("ORD-20260301-0021")); err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	router := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/tickets?stage=new", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"urgency":"warning"`) {
		t.Errorf("list = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/tickets?stage=frozen", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad stage status = %d, want 400", rec.Code)
	}
}

func TestHandlerPrintAndReprint(t *testing.T) {
	f := newDispatcherFixture()
	ticket, err := f.dispatcher.Derive(context.Background(), confirmedOrder("ORD-20260301-0022"))
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	router := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/tickets/"+ticket.ID.String()+"/print", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("print = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if strings.Contains(rec.Body.String(), "REPRINT") {
		t.Error("first print should not be marked as a reprint")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/kitchen/tickets/"+ticket.ID.String()+"/reprint", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "REPRINT #1") {
		t.Errorf("reprint = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/tickets/nope/print", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}
