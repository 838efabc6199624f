package kitchen

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	dispatcher *Dispatcher
	printer    *Printer
	logger     apt.Logger
	tlm        *telemetry.HTTP
}

func NewHandler(dispatcher *Dispatcher, printer *Printer, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		dispatcher: dispatcher,
		printer:    printer,
		logger:     logger,
		tlm:        telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/kitchen/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Get("/{id}", h.GetTicket)
		r.Post("/{id}/advance", h.AdvanceTicket)
		r.Get("/{id}/print", h.PrintTicket)
		r.Post("/{id}/reprint", h.ReprintTicket)
	})
}

type AdvanceRequest struct {
	Stage string `json:"stage"`
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTickets")
	defer finish()

	log := h.log(r)
	query := r.URL.Query()

	stages, err := ParseStages(query.Get("stage"))
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	views, err := h.dispatcher.Board(r.Context(), TicketFilter{
		Stages:      stages,
		TableNumber: strings.TrimSpace(query.Get("table")),
	})
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondCollection(w, views, "ticket")
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTicket")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	t, err := h.dispatcher.Ticket(r.Context(), id)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, h.dispatcher.View(t), apt.RESTfulLinksFor(t)...)
}

func (h *Handler) AdvanceTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AdvanceTicket")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	actor, ok := role.FromRequest(r)
	if !ok {
		fault.Respond(w, log, fault.Forbidden("missing or unknown %s header", role.Header))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req AdvanceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	t, err := h.dispatcher.Advance(r.Context(), id, req.Stage, actor)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, h.dispatcher.View(t), apt.RESTfulLinksFor(t)...)
}

func (h *Handler) PrintTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintTicket")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	t, err := h.dispatcher.Ticket(r.Context(), id)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	h.render(w, log, t)
}

func (h *Handler) ReprintTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReprintTicket")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	t, err := h.dispatcher.Reprint(r.Context(), id)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	h.render(w, log, t)
}

func (h *Handler) render(w http.ResponseWriter, log apt.Logger, t *Ticket) {
	var buf bytes.Buffer
	if err := h.printer.Render(&buf, t, h.dispatcher.now()); err != nil {
		log.Error("cannot render ticket", "ticket", t.Number, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not render ticket")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
