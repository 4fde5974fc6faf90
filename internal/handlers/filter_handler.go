package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"eagletask/internal/repositories"
	"eagletask/internal/services"
)

type FilterHandler struct {
	filters services.FilterService
}

func NewFilterHandler(filters services.FilterService) *FilterHandler {
	return &FilterHandler{filters: filters}
}

// @Summary      List saved filters
// @Tags         Filters
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Filter
// @Router       /filters [get]
func (h *FilterHandler) List(c *gin.Context) {
	userID := currentUser(c)
	filters, err := h.filters.ListFilters(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, "[filter][list]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

// @Summary      Save a filter
// @Tags         Filters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        filter  body      object  true  "filter (1-50 chars)"
// @Success      201     {object}  models.Filter
// @Failure      400     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /filters/new [post]
func (h *FilterHandler) Create(c *gin.Context) {
	var req struct {
		Filter string `json:"filter" binding:"required"`
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[filter][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid filter"})
		return
	}

	filter, err := h.filters.CreateFilter(c.Request.Context(), userID, req.Filter)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateFilter) {
			c.JSON(http.StatusConflict, gin.H{"error": "filter already saved"})
			return
		}
		log.Printf("[filter][create][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, filter)
}

// @Summary      Delete a filter
// @Tags         Filters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        filter  body      object  true  "filter"
// @Success      200     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /filters [delete]
func (h *FilterHandler) Delete(c *gin.Context) {
	var req struct {
		Filter string `json:"filter" binding:"required"`
	}
	userID := currentUser(c)

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[filter][delete][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid filter"})
		return
	}

	if err := h.filters.DeleteFilter(c.Request.Context(), userID, req.Filter); err != nil {
		respondServiceError(c, "[filter][delete]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "filter deleted"})
}
