package billing

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
	biller *Biller
	logger apt.Logger
	tlm    *telemetry.HTTP
}

func NewHandler(biller *Biller, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		biller: biller,
		logger: logger,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bills", func(r chi.Router) {
		r.Post("/", h.CreateBill)
		r.Get("/{id}", h.GetBill)
	})
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateBill")
	defer finish()

	log := h.log(r)

	actor, ok := role.FromRequest(r)
	if !ok || actor.Name != role.Roles.Admin.Name {
		fault.Respond(w, log, fault.Forbidden("only admins can bill a table"))
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

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	result, err := h.biller.ComputeBill(r.Context(), req)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.Respond(w, http.StatusCreated, result, nil)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetBill")
	defer finish()

	log := h.log(r)

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	bill, err := h.biller.Get(r.Context(), id)
	if err != nil {
		fault.Respond(w, log, err)
		return
	}

	apt.RespondSuccess(w, bill, apt.RESTfulLinksFor(bill)...)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
