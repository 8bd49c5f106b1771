package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/service"
)

type BidPackageHandler struct {
	store *service.Store
	rag   *service.RagStoreService
}

func NewBidPackageHandler(store *service.Store, rag *service.RagStoreService) *BidPackageHandler {
	return &BidPackageHandler{store: store, rag: rag}
}

type BidPackageRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create creates a bid package
func (h *BidPackageHandler) Create(c *gin.Context) {
	var req BidPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pkg := &model.BidPackage{Name: req.Name, Description: req.Description}
	if err := h.store.CreateBidPackage(pkg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bid package"})
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// List returns all bid packages
func (h *BidPackageHandler) List(c *gin.Context) {
	pkgs, err := h.store.ListBidPackages()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bid packages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid_packages": pkgs})
}

// Update renames a bid package
func (h *BidPackageHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var req BidPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pkg, err := h.store.GetBidPackage(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bid package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bid package"})
		return
	}

	pkg.Name = req.Name
	if req.Description != "" {
		pkg.Description = req.Description
	}
	if err := h.store.UpdateBidPackage(pkg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update bid package"})
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// Delete removes a bid package with all its contractors, files, results
// and remote retrieval stores. Remote cleanup is best-effort: a failed
// store deletion is logged and the database delete proceeds.
func (h *BidPackageHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	if _, err := h.store.GetBidPackage(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bid package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bid package"})
		return
	}

	contractors, err := h.store.ListContractors(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contractors"})
		return
	}

	ctx := c.Request.Context()
	for _, contractor := range contractors {
		if contractor.StoreName == "" {
			continue
		}
		if err := h.rag.DeleteStore(ctx, contractor.StoreName); err != nil {
			logger.Warn(ctx, "orphaned retrieval store, delete failed",
				"contractor_id", contractor.ID,
				"store", contractor.StoreName,
				"error", err,
			)
		}
	}

	if err := h.store.DeleteBidPackage(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete bid package"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bid package deleted"})
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
