package api

import (
	"net/http"

	"homekeys/server/internal/catalog"
	"homekeys/server/internal/pagination"

	"github.com/gin-gonic/gin"
)

const defaultSimilar = 3

type listQuery struct {
	catalog.Query
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListProperties returns one page of the filtered and sorted catalog
func (h *Handler) ListProperties(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.WithError(err).Debug("Invalid property query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}
	switch q.Sort {
	case "", catalog.SortNewest, catalog.SortPriceAsc, catalog.SortPriceDesc:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown sort order"})
		return
	}

	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = h.pageSize
	}

	properties := h.store.Filter(q.Query)
	c.JSON(http.StatusOK, pagination.Paginate(q.Page, q.PageSize, properties))
}

func (h *Handler) GetProperty(c *gin.Context) {
	property, ok := h.store.ByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}
	c.JSON(http.StatusOK, property)
}

type similarQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=20"`
}

// GetSimilarProperties lists other listings to show under the detail view
func (h *Handler) GetSimilarProperties(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.ByID(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	var q similarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultSimilar
	}

	c.JSON(http.StatusOK, gin.H{"properties": h.store.Similar(id, q.Limit)})
}
