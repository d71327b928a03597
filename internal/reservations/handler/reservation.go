package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"fleetbook/internal/reservations/service"
	apperrors "fleetbook/pkg/errors"
	httputil "fleetbook/pkg/http"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/middleware"
	"fleetbook/pkg/model"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req model.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	reservation, err := h.service.Create(r.Context(), requester, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		h.writeError(w, "Cancel", apperrors.Unauthorized("Authentication required"))
		return
	}

	id := ps.ByName("id")

	if err := h.service.Cancel(r.Context(), requester, id); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) History(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		h.writeError(w, "History", apperrors.Unauthorized("Authentication required"))
		return
	}

	history, err := h.service.HistoryForUser(r.Context(), requester.ID)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}

	if err := httputil.WriteSuccess(w, history); err != nil {
		h.log.Error("failed to write success response", "handler", "History", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok || !requester.IsAdmin() {
		h.writeError(w, "GetAll", apperrors.Forbidden("Admin role required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	reservations, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

// AdminCancel is the admin variant of Cancel. The service applies the same
// rules; the route exists so admin tooling does not share the user-facing
// path.
func (h *ReservationHandler) AdminCancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok || !requester.IsAdmin() {
		h.writeError(w, "AdminCancel", apperrors.Forbidden("Admin role required"))
		return
	}

	id := ps.ByName("id")

	if err := h.service.Cancel(r.Context(), requester, id); err != nil {
		h.writeError(w, "AdminCancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Discount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		h.writeError(w, "Discount", apperrors.Unauthorized("Authentication required"))
		return
	}

	percent, count, err := h.service.DiscountForUser(r.Context(), requester.ID)
	if err != nil {
		h.writeError(w, "Discount", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{
		"discount_percent": percent,
		"reservations":     count,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Discount", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Upcoming(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	carID := ps.ByName("id")

	periods, err := h.service.UpcomingForCar(r.Context(), carID)
	if err != nil {
		h.writeError(w, "Upcoming", err)
		return
	}

	if err := httputil.WriteSuccess(w, periods); err != nil {
		h.log.Error("failed to write success response", "handler", "Upcoming", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.GetAll)
	router.GET("/api/v1/reservations/my", h.History)
	router.GET("/api/v1/reservations/discount", h.Discount)
	router.DELETE("/api/v1/reservations/id/:id", h.Cancel)
	router.DELETE("/api/v1/reservations/admin/:id", h.AdminCancel)
	router.GET("/api/v1/reservations/car/:id/upcoming", h.Upcoming)
}
