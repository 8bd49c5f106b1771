package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/service"
)

// CriteriaSetHandler manages reusable named prompt lists.
type CriteriaSetHandler struct {
	store *service.Store
}

func NewCriteriaSetHandler(store *service.Store) *CriteriaSetHandler {
	return &CriteriaSetHandler{store: store}
}

type CriteriaSetRequest struct {
	Name    string   `json:"name" binding:"required"`
	Prompts []string `json:"prompts" binding:"required"`
}

func (h *CriteriaSetHandler) Create(c *gin.Context) {
	var req CriteriaSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	prompts, err := json.Marshal(req.Prompts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prompts"})
		return
	}

	cs := &model.CriteriaSet{Name: req.Name, Prompts: prompts}
	if err := h.store.CreateCriteriaSet(cs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create criteria set"})
		return
	}

	c.JSON(http.StatusOK, cs)
}

func (h *CriteriaSetHandler) List(c *gin.Context) {
	sets, err := h.store.ListCriteriaSets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list criteria sets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"criteria_sets": sets})
}

func (h *CriteriaSetHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var req CriteriaSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	cs, err := h.store.GetCriteriaSet(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Criteria set not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load criteria set"})
		return
	}

	prompts, err := json.Marshal(req.Prompts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prompts"})
		return
	}

	cs.Name = req.Name
	cs.Prompts = prompts
	if err := h.store.UpdateCriteriaSet(cs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update criteria set"})
		return
	}

	c.JSON(http.StatusOK, cs)
}

func (h *CriteriaSetHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	if err := h.store.DeleteCriteriaSet(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete criteria set"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Criteria set deleted"})
}
