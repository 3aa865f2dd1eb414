package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/expanova/cita-watcher/common/models"
	"github.com/expanova/cita-watcher/common/utils"
	"github.com/expanova/cita-watcher/portals"
	"github.com/expanova/cita-watcher/watcher"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type AvailabilityHandler struct {
	scheduler WatcherScheduler
	registry  *portals.Registry
	validate  *validator.Validate
	router    *chi.Mux
}

func NewAvailabilityHandler(scheduler WatcherScheduler, registry *portals.Registry) *AvailabilityHandler {
	h := &AvailabilityHandler{
		scheduler: scheduler,
		registry:  registry,
		validate:  validator.New(),
	}

	r := chi.NewRouter()
	r.Post("/", h.handleCheckAvailability)

	h.router = r
	return h
}

func (h *AvailabilityHandler) Router() *chi.Mux {
	return h.router
}

// @Summary      Check availability
// @Description  Runs a one-off check against a portal and returns every visible slot
// @Tags         availability
// @Accept       json
// @Produce      json
// @Param        body body models.CheckAvailabilityRequest true "Portal"
// @Success      200 {object} models.BaseResponse{data=models.CheckAvailabilityResponse}
// @Failure      400 {object} models.ErrorResponse
// @Failure      429 {object} models.ErrorResponse
// @Failure      502 {object} models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /check-availability [post]
func (h *AvailabilityHandler) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	var p models.CheckAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	portal, ok := h.registry.Classify(p.PortalURL).Get()
	if p.PortalURL == "" {
		portal, ok = h.registry.ForTaskType(p.TaskType).Get()
	}
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Unsupported portal")
		return
	}

	slots, err := h.scheduler.CheckNow(r.Context(), portal.BaseURL, p.Location)
	if err != nil {
		switch {
		case errors.Is(err, watcher.ErrUnknownPortal):
			utils.WriteError(w, http.StatusBadRequest, "Unsupported portal")
		case errors.Is(err, watcher.ErrPortalBusy):
			w.Header().Set("Retry-After", strconv.Itoa(int(portal.RateLimit.Seconds())))
			utils.WriteError(w, http.StatusTooManyRequests, "Portal was checked too recently")
		case errors.Is(err, watcher.ErrSchedulerClosed), errors.Is(err, watcher.ErrSchedulerNotStarted):
			utils.WriteError(w, http.StatusServiceUnavailable, "Scheduler is not running")
		default:
			log.Error().Err(err).Str("portal", string(portal.ID)).Msg("Availability check failed")
			utils.WriteError(w, http.StatusBadGateway, "Portal check failed")
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.CheckAvailabilityResponse{
		Portal: models.PortalSummary{ID: string(portal.ID), Name: portal.Name},
		Slots: lo.Map(slots, func(s watcher.Slot, _ int) models.SlotResponse {
			return models.SlotResponse{
				Date:      s.Date.Format(dateLayout),
				Time:      s.Time,
				Location:  s.Location,
				Available: s.Available,
				URL:       s.URL,
			}
		}),
		CheckedAt: time.Now().UTC(),
	})
}
