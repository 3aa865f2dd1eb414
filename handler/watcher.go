package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/expanova/cita-watcher/common/models"
	"github.com/expanova/cita-watcher/common/services"
	"github.com/expanova/cita-watcher/common/utils"
	"github.com/expanova/cita-watcher/portals"
	"github.com/expanova/cita-watcher/watcher"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	dateLayout     = "2006-01-02"
	defaultPerPage = 20
	maxPerPage     = 100
)

// WatcherScheduler is the part of watcher.Scheduler the HTTP layer drives
type WatcherScheduler interface {
	Add(ctx context.Context, n watcher.NewWatcher) (watcher.Watcher, error)
	Remove(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Status(id string) (watcher.Status, error)
	Get(id string) (watcher.Watcher, error)
	List(userID string) []watcher.Watcher
	CheckNow(ctx context.Context, portalURL, location string) ([]watcher.Slot, error)
}

type WatcherHandler struct {
	scheduler WatcherScheduler
	registry  *portals.Registry
	events    services.EventService
	validate  *validator.Validate
	router    *chi.Mux
}

// NewWatcherHandler creates the watcher routes. events may be nil when
// event history is not persisted.
func NewWatcherHandler(scheduler WatcherScheduler, registry *portals.Registry, events services.EventService) *WatcherHandler {
	h := &WatcherHandler{
		scheduler: scheduler,
		registry:  registry,
		events:    events,
		validate:  validator.New(),
	}

	r := chi.NewRouter()
	r.Post("/", h.handleCreateWatcher)
	r.Get("/", h.handleListWatchers)
	r.Get("/{id}", h.handleGetWatcher)
	r.Get("/{id}/status", h.handleWatcherStatus)
	r.Get("/{id}/events", h.handleWatcherEvents)
	r.Patch("/{id}/pause", h.handlePauseWatcher)
	r.Patch("/{id}/resume", h.handleResumeWatcher)
	r.Delete("/{id}", h.handleDeleteWatcher)

	h.router = r
	return h
}

func (h *WatcherHandler) Router() *chi.Mux {
	return h.router
}

// @Summary      Create watcher
// @Description  Starts monitoring a portal for appointments matching the given preferences
// @Tags         watchers
// @Accept       json
// @Produce      json
// @Param        body body models.CreateWatcherRequest true "Watcher"
// @Success      201 {object} models.BaseResponse{data=models.WatcherResponse}
// @Failure      400 {object} models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /watchers [post]
func (h *WatcherHandler) handleCreateWatcher(w http.ResponseWriter, r *http.Request) {
	var p models.CreateWatcherRequest
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	portalURL, err := h.resolvePortalURL(p.PortalURL, p.TaskType)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dates, err := parseDates(p.PreferredDates)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.scheduler.Add(r.Context(), watcher.NewWatcher{
		UserID:         p.UserID,
		TaskID:         p.TaskID,
		PortalURL:      portalURL,
		Location:       p.Location,
		PreferredDates: dates,
		PreferredTimes: p.PreferredTimes,
	})
	if err != nil {
		writeSchedulerError(w, err)
		return
	}

	status, _ := h.scheduler.Status(created.ID)
	utils.WriteJSON(w, http.StatusCreated, h.toWatcherResponse(created, status))
}

// @Summary      List watchers
// @Tags         watchers
// @Produce      json
// @Param        user_id query string true "Owner"
// @Success      200 {object} models.BaseResponse{data=[]models.WatcherResponse}
// @Security     ApiKeyAuth
// @Router       /watchers [get]
func (h *WatcherHandler) handleListWatchers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		utils.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	results := lo.Map(h.scheduler.List(userID), func(wt watcher.Watcher, _ int) models.WatcherResponse {
		status, _ := h.scheduler.Status(wt.ID)
		return h.toWatcherResponse(wt, status)
	})
	utils.WriteJSON(w, http.StatusOK, results)
}

func (h *WatcherHandler) handleGetWatcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.scheduler.Get(id)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	status, _ := h.scheduler.Status(id)
	utils.WriteJSON(w, http.StatusOK, h.toWatcherResponse(found, status))
}

// @Summary      Watcher status
// @Tags         watchers
// @Produce      json
// @Param        id path string true "Watcher ID"
// @Success      200 {object} models.BaseResponse{data=models.WatcherStatusResponse}
// @Failure      404 {object} models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /watchers/{id}/status [get]
func (h *WatcherHandler) handleWatcherStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.scheduler.Status(id)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.WatcherStatusResponse{
		ID:          id,
		Active:      status.Active,
		LastChecked: optionalTime(status),
		LastOutcome: string(status.LastOutcome),
	})
}

// @Summary      Watcher events
// @Description  Lifecycle and check history of a watcher, newest first
// @Tags         watchers
// @Produce      json
// @Param        id       path  string true  "Watcher ID"
// @Param        page     query int    false "Page"
// @Param        per_page query int    false "Page size"
// @Success      200 {object} models.BasePaginationResponse{data=[]models.WatcherEvent}
// @Failure      404 {object} models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /watchers/{id}/events [get]
func (h *WatcherHandler) handleWatcherEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, "Event history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.scheduler.Get(id); err != nil {
		writeSchedulerError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := min(queryInt(r, "per_page", defaultPerPage), maxPerPage)

	events, total, err := h.events.ListByWatcher(r.Context(), id, perPage, (page-1)*perPage)
	if err != nil {
		log.Error().Err(err).Str("watcherID", id).Msg("Failed to list watcher events")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list watcher events")
		return
	}

	utils.WritePagination(w, http.StatusOK, events, page, perPage, total)
}

func (h *WatcherHandler) handlePauseWatcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.scheduler.Pause(r.Context(), id); err != nil {
		writeSchedulerError(w, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "Watcher paused")
}

func (h *WatcherHandler) handleResumeWatcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.scheduler.Resume(r.Context(), id); err != nil {
		writeSchedulerError(w, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "Watcher resumed")
}

// @Summary      Delete watcher
// @Tags         watchers
// @Produce      json
// @Param        id path string true "Watcher ID"
// @Success      200 {object} models.BaseResponse{data=string}
// @Failure      404 {object} models.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /watchers/{id} [delete]
func (h *WatcherHandler) handleDeleteWatcher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.scheduler.Remove(r.Context(), id); err != nil {
		writeSchedulerError(w, err)
		return
	}
	utils.WriteMessage(w, http.StatusOK, "Watcher deleted")
}

// resolvePortalURL prefers an explicit portal URL and falls back to the
// portal registered for the task type.
func (h *WatcherHandler) resolvePortalURL(portalURL, taskType string) (string, error) {
	if portalURL != "" {
		return portalURL, nil
	}
	portal, ok := h.registry.ForTaskType(taskType).Get()
	if !ok {
		return "", fmt.Errorf("no portal handles task type %q", taskType)
	}
	return portal.BaseURL, nil
}

func (h *WatcherHandler) toWatcherResponse(wt watcher.Watcher, status watcher.Status) models.WatcherResponse {
	res := models.WatcherResponse{
		ID:        wt.ID,
		UserID:    wt.UserID,
		TaskID:    wt.TaskID,
		PortalURL: wt.PortalURL,
		Location:  wt.Location,
		PreferredDates: lo.Map(wt.PreferredDates, func(d time.Time, _ int) string {
			return d.Format(dateLayout)
		}),
		PreferredTimes: lo.Ternary(wt.PreferredTimes == nil, []string{}, wt.PreferredTimes),
		Active:         wt.Active,
		LastChecked:    optionalTime(status),
		LastOutcome:    string(status.LastOutcome),
		CreatedAt:      wt.CreatedAt,
	}
	if portal, ok := h.registry.Classify(wt.PortalURL).Get(); ok {
		res.Portal = &models.PortalSummary{ID: string(portal.ID), Name: portal.Name}
		res.PortalSupported = true
	}
	return res
}

func optionalTime(status watcher.Status) *time.Time {
	t, ok := status.LastChecked.Get()
	if !ok {
		return nil
	}
	return &t
}

func parseDates(values []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid preferred date %q", v)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeSchedulerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, watcher.ErrWatcherNotFound):
		utils.WriteError(w, http.StatusNotFound, "Watcher not found")
	case errors.Is(err, watcher.ErrInvalidWatcher), errors.Is(err, watcher.ErrUnknownPortal):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, watcher.ErrSchedulerClosed), errors.Is(err, watcher.ErrSchedulerNotStarted):
		utils.WriteError(w, http.StatusServiceUnavailable, "Scheduler is not running")
	default:
		log.Error().Err(err).Msg("Watcher operation failed")
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
