package order

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/enums/role"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	service *Service
	logger  apt.Logger
	tlm     *telemetry.HTTP
}

func NewHandler(service *Service, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		service: service,
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
		r.Patch("/{id}/lines/{lineID}", h.UpdateOrderLine)
	})
}

// StatusRequest asks for a status change.
type StatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ListMeta describes the page returned by ListOrders.
type ListMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)

	var req CreateRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	o, err := h.service.Create(r.Context(), req)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.Respond(w, http.StatusCreated, o, nil)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}

	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)

	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	page, err := h.service.List(r.Context(), q)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.Respond(w, http.StatusOK, page.Orders, ListMeta{
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
		Pages: page.Pages,
	})
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}

	actor, ok := role.FromRequest(r)
	if !ok {
		fault.Respond(w, log, fault.Forbidden("missing or unknown %s header", role.Header))
		return
	}

	var req StatusRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	target, ok := ParseStatus(req.Status)
	if !ok {
		fault.Respond(w, log, fault.InvalidInput("unknown status %q", req.Status).
			WithDetail("status", "invalid", "unknown status"))
		return
	}

	o, err := h.service.Transition(r.Context(), id, target, actor, req.Reason)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

func (h *Handler) UpdateOrderLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderLine")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}
	lineID, ok := h.parseIDParam(w, r, log, "lineID")
	if !ok {
		return
	}

	var req LineUpdate
	if !h.decode(w, r, log, &req) {
		return
	}

	o, err := h.service.UpdateLine(r.Context(), id, lineID, req)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger, name string) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, name)
	if idStr == "" {
		log.Debug("missing id parameter", "param", name)
		apt.RespondError(w, http.StatusBadRequest, "Missing "+name+" parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "param", name, "value", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
