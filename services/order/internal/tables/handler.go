package tables

import (
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

type Handler struct {
	coordinator *Coordinator
	logger      apt.Logger
	tlm         *telemetry.HTTP
}

func NewHandler(coordinator *Coordinator, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		coordinator: coordinator,
		logger:      logger,
		tlm:         telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.ListTables)
		r.Get("/{number}", h.GetTable)
		r.Post("/{number}/session", h.OpenSession)
	})
}

// TableView is a table together with its open session, if any.
type TableView struct {
	*Table
	Session *Session `json:"session,omitempty"`
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)

	tables, err := h.coordinator.Tables(r.Context())
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filtered := tables[:0]
		for _, t := range tables {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tables = filtered
	}

	apt.RespondCollection(w, tables, "table")
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	number, ok := h.parseNumberParam(w, r, log)
	if !ok {
		return
	}

	table, err := h.coordinator.Table(ctx, number)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	session, err := h.coordinator.OpenSession(ctx, table)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, TableView{Table: table, Session: session}, apt.RESTfulLinksFor(table)...)
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenSession")
	defer finish()

	log := h.log(r)

	number, ok := h.parseNumberParam(w, r, log)
	if !ok {
		return
	}

	session, err := h.coordinator.GetOrOpenSession(r.Context(), number)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, session, apt.RESTfulLinksFor(session)...)
}

func (h *Handler) parseNumberParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (string, bool) {
	number := strings.TrimSpace(chi.URLParam(r, "number"))
	if number == "" {
		log.Debug("missing table number parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing table number")
		return "", false
	}
	return number, true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
