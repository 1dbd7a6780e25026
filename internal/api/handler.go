package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/safespot-alerts/internal/alerts"
	"github.com/mr1hm/safespot-alerts/internal/geo"
	"github.com/mr1hm/safespot-alerts/internal/location"
	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/notify"
	"github.com/mr1hm/safespot-alerts/internal/preparedness"
)

const (
	defaultHazardLimit = 100
	maxHazardLimit     = 500
)

// StateReader is the read side of the alerts store.
type StateReader interface {
	Status() alerts.Status
	Snapshot() models.Snapshot
	UserLocation() *models.UserLocation
	NearbyHazards(now time.Time) []models.NearbyHazard
}

// Controller is the write side, implemented by the refresh scheduler.
type Controller interface {
	Refresh(ctx context.Context, userInitiated bool) error
	SetUserLocation(u models.UserLocation)
	ClearUserLocation()
	SetAutoRefresh(enabled bool)
}

type Handler struct {
	state       StateReader
	control     Controller
	shelters    []models.Shelter
	broadcaster *notify.Broadcaster
}

func NewHandler(state StateReader, control Controller, shelters []models.Shelter, broadcaster *notify.Broadcaster) *Handler {
	return &Handler{
		state:       state,
		control:     control,
		shelters:    shelters,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/status", h.status)
	api.GET("/hazards", h.getHazards)
	api.GET("/hazards/nearby", h.getNearby)
	api.PUT("/location", h.setLocation)
	api.DELETE("/location", h.clearLocation)
	api.PUT("/auto-refresh", h.setAutoRefresh)
	api.POST("/refresh", h.refresh)
	api.GET("/shelters", h.getShelters)
	api.GET("/shelters/nearest", h.getNearestShelter)
	api.GET("/checklists/:type", h.getChecklist)
	api.GET("/notifications/stream", h.streamNotifications)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.state.Status())
}

func (h *Handler) getHazards(c *gin.Context) {
	snap := h.state.Snapshot()

	var want models.HazardType
	if t := c.Query("type"); t != "" {
		want = models.ParseHazardType(t)
	}
	var hazards []models.HazardRecord
	for _, hz := range snap.All() {
		if want != "" && hz.Type != want {
			continue
		}
		if geometryOf(hz) == nil {
			continue
		}
		hazards = append(hazards, hz)
	}

	limit := defaultHazardLimit
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxHazardLimit {
			limit = lim
		}
	}
	if len(hazards) > limit {
		hazards = hazards[:limit]
	}

	c.Header("Content-Type", geoJSONContentType)
	c.JSON(http.StatusOK, hazardsToGeoJSON(hazards))
}

func (h *Handler) getNearby(c *gin.Context) {
	nearby := h.state.NearbyHazards(time.Now())
	c.Header("Content-Type", geoJSONContentType)
	c.JSON(http.StatusOK, nearbyToGeoJSON(nearby))
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  float64  `json:"altitude"`
}

func (h *Handler) setLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location body"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	u := models.UserLocation{Latitude: *req.Latitude, Longitude: *req.Longitude, Altitude: req.Altitude}
	if err := location.Validate(u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.control.SetUserLocation(u)
	c.JSON(http.StatusOK, h.state.Status())
}

func (h *Handler) clearLocation(c *gin.Context) {
	h.control.ClearUserLocation()
	c.JSON(http.StatusOK, h.state.Status())
}

type autoRefreshRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) setAutoRefresh(c *gin.Context) {
	var req autoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `body must be {"enabled": bool}`})
		return
	}
	h.control.SetAutoRefresh(*req.Enabled)
	c.JSON(http.StatusOK, h.state.Status())
}

func (h *Handler) refresh(c *gin.Context) {
	// a client hanging up should not abort a refresh that is already running
	ctx := context.WithoutCancel(c.Request.Context())

	err := h.control.Refresh(ctx, true)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.state.Status())
	case errors.Is(err, alerts.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  err.Error(),
			"status": h.state.Status(),
		})
	}
}

func (h *Handler) getShelters(c *gin.Context) {
	list := geo.SheltersByDistance(h.state.UserLocation(), h.shelters, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"shelters": list})
}

func (h *Handler) getNearestShelter(c *gin.Context) {
	nearest, ok := geo.Nearest(h.state.UserLocation(), h.shelters)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no shelter available for the current location"})
		return
	}
	c.JSON(http.StatusOK, nearest)
}

func (h *Handler) getChecklist(c *gin.Context) {
	t := models.HazardType(c.Param("type"))
	items, ok := preparedness.Checklist(t)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checklist for hazard type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": t, "items": items})
}

func (h *Handler) streamNotifications(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification stream disabled"})
		return
	}

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
