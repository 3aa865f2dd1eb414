package handler

import (
	"net/http"

	"github.com/expanova/cita-watcher/common/models"
	"github.com/expanova/cita-watcher/common/utils"
	"github.com/expanova/cita-watcher/portals"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type PortalHandler struct {
	registry *portals.Registry
	router   *chi.Mux
}

func NewPortalHandler(registry *portals.Registry) *PortalHandler {
	h := &PortalHandler{
		registry: registry,
	}

	r := chi.NewRouter()
	r.Get("/", h.handleListPortals)
	r.Get("/{id}", h.handleGetPortal)

	h.router = r
	return h
}

func (h *PortalHandler) Router() *chi.Mux {
	return h.router
}

// @Summary      List portals
// @Tags         portals
// @Produce      json
// @Success      200 {object} models.BaseResponse{data=[]models.PortalResponse}
// @Security     ApiKeyAuth
// @Router       /portals [get]
func (h *PortalHandler) handleListPortals(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, lo.Map(h.registry.All(), func(p portals.Portal, _ int) models.PortalResponse {
		return toPortalResponse(p)
	}))
}

func (h *PortalHandler) handleGetPortal(w http.ResponseWriter, r *http.Request) {
	id := portals.ID(chi.URLParam(r, "id"))

	portal, ok := h.registry.Get(id).Get()
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "Portal not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, toPortalResponse(portal))
}

func toPortalResponse(p portals.Portal) models.PortalResponse {
	return models.PortalResponse{
		ID:               string(p.ID),
		Name:             p.Name,
		Description:      p.Description,
		BaseURL:          p.BaseURL,
		RateLimitSeconds: int64(p.RateLimit.Seconds()),
		TaskTypes:        lo.Ternary(p.TaskTypes == nil, []string{}, p.TaskTypes),
		NavigationSteps:  len(p.Navigation),
	}
}
