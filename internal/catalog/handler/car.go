package handler

import (
	"errors"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"

	"fleetbook/internal/catalog"
	apperrors "fleetbook/pkg/errors"
	httputil "fleetbook/pkg/http"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

// CarHandler serves the read-only catalog views. Catalog mutations happen in
// the fleet admin tooling, not here.
type CarHandler struct {
	repo catalog.CarRepository
	log  *logger.Logger
}

func NewCarHandler(repo catalog.CarRepository, log *logger.Logger) *CarHandler {
	return &CarHandler{
		repo: repo,
		log:  log,
	}
}

func (h *CarHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	var count int64
	var cars []*model.Car
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = h.repo.Count(r.Context())
	}()

	go func() {
		defer wg.Done()
		cars, errFind = h.repo.FindAll(r.Context(), limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		h.log.Error("Failed to count cars", "error", errCount)
		h.writeError(w, "GetAll", apperrors.Internal("Failed to count cars", errCount))
		return
	}
	if errFind != nil {
		h.log.Error("Failed to list cars", "error", errFind)
		h.writeError(w, "GetAll", apperrors.Internal("Failed to retrieve cars", errFind))
		return
	}

	if err := httputil.WritePaginated(w, cars, count, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *CarHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	car, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrCarNotFound) {
			h.writeError(w, "GetByID", apperrors.NotFoundWithID("Car", id))
			return
		}
		if errors.Is(err, catalog.ErrInvalidCarID) {
			h.writeError(w, "GetByID", apperrors.InvalidInput("Invalid car ID format"))
			return
		}
		h.log.Error("Failed to retrieve car", "id", id, "error", err)
		h.writeError(w, "GetByID", apperrors.Internal("Failed to retrieve car", err))
		return
	}

	if err := httputil.WriteSuccess(w, car); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CarHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CarHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/cars", h.GetAll)
	router.GET("/api/v1/cars/id/:id", h.GetByID)
}
