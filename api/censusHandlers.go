package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/models"
)

func (h *Handler) listCensus(c *gin.Context) {
	locationId, err := int64Param(c, "locationId")
	if err != nil {
		h.respondError(c, "listCensus", err)
		return
	}
	census, err := models.ListLocationCensus(c.Request.Context(), h.db, locationId)
	if err != nil {
		h.respondError(c, "listCensus", err)
		return
	}
	c.JSON(http.StatusOK, census)
}

func (h *Handler) upsertCensus(c *gin.Context) {
	locationId, err := int64Param(c, "locationId")
	if err != nil {
		h.respondError(c, "upsertCensus", err)
		return
	}
	var input models.NewLocationCensus
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, "upsertCensus", err)
		return
	}
	ctx := c.Request.Context()
	census, err := models.UpsertLocationCensus(ctx, h.db, locationId, c.Param("month"), &input)
	if err != nil {
		h.respondError(c, "upsertCensus", err)
		return
	}
	h.reporter.InvalidateLocations(ctx, locationId)
	c.JSON(http.StatusOK, census)
}

func (h *Handler) deleteCensus(c *gin.Context) {
	locationId, err := int64Param(c, "locationId")
	if err != nil {
		h.respondError(c, "deleteCensus", err)
		return
	}
	ctx := c.Request.Context()
	census, err := models.DeleteLocationCensus(ctx, h.db, locationId, c.Param("month"))
	if err != nil {
		h.respondError(c, "deleteCensus", err)
		return
	}
	h.reporter.InvalidateLocations(ctx, locationId)
	c.JSON(http.StatusOK, census)
}
