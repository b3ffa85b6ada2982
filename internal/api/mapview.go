package api

import (
	"net/http"

	"homekeys/server/internal/mapview"

	"github.com/gin-gonic/gin"
)

type mapQuery struct {
	Session   string `form:"session"`
	Precision int    `form:"precision" binding:"omitempty,min=1,max=12"`
}

// layer builds the map layer, highlighting the selection of the optional
// session query parameter
func (h *Handler) layer(c *gin.Context) (mapview.Layer, mapQuery, bool) {
	var q mapQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return mapview.Layer{}, q, false
	}

	var selectedID string
	if q.Session != "" {
		s, ok := h.sessions.Get(q.Session)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return mapview.Layer{}, q, false
		}
		state := s.Do(nil)
		if state.OverlayOpen {
			selectedID = state.SelectedID
		}
	}

	return mapview.Build(h.store.All(), selectedID, h.locator, h.region), q, true
}

func (h *Handler) GetMarkers(c *gin.Context) {
	layer, _, ok := h.layer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, layer)
}

func (h *Handler) GetGeoJSON(c *gin.Context) {
	layer, _, ok := h.layer(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, mapview.FeatureCollection(layer))
}

func (h *Handler) GetClusters(c *gin.Context) {
	layer, q, ok := h.layer(c)
	if !ok {
		return
	}
	precision := q.Precision
	if precision == 0 {
		precision = mapview.DefaultPrecision
	}
	c.JSON(http.StatusOK, gin.H{
		"precision": precision,
		"clusters":  mapview.Clusters(layer.Markers, precision),
		"unplaced":  layer.Unplaced,
		"bounds":    layer.Bounds,
	})
}
