package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/service"
)

type ContractorHandler struct {
	store *service.Store
	rag   *service.RagStoreService
	minio *service.MinioService
}

func NewContractorHandler(store *service.Store, rag *service.RagStoreService, minio *service.MinioService) *ContractorHandler {
	return &ContractorHandler{store: store, rag: rag, minio: minio}
}

type ContractorRequest struct {
	Name         string `json:"name" binding:"required"`
	BidPackageID uint   `json:"bid_package_id"`
}

// Create adds a contractor to a bid package. Contractors start without a
// retrieval store; ingestion establishes it.
func (h *ContractorHandler) Create(c *gin.Context) {
	var req ContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BidPackageID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.store.GetBidPackage(req.BidPackageID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bid package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bid package"})
		return
	}

	contractor := &model.Contractor{Name: req.Name, BidPackageID: req.BidPackageID}
	if err := h.store.CreateContractor(contractor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contractor"})
		return
	}

	c.JSON(http.StatusOK, contractor)
}

// List returns contractors of one bid package
func (h *ContractorHandler) List(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	contractors, err := h.store.ListContractors(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contractors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contractors": contractors})
}

// Update renames a contractor
func (h *ContractorHandler) Update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	var req ContractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contractor, err := h.store.GetContractor(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contractor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contractor"})
		return
	}

	contractor.Name = req.Name
	if err := h.store.UpdateContractor(contractor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contractor"})
		return
	}

	c.JSON(http.StatusOK, contractor)
}

// Delete removes a contractor, its retrieval store, its stored documents
// and its evaluation history. Irreversible. Remote cleanup runs first and
// is best-effort: losing a database row is worse than leaking a store.
func (h *ContractorHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	contractor, err := h.store.GetContractor(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contractor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contractor"})
		return
	}

	ctx := c.Request.Context()
	if contractor.StoreName != "" {
		if err := h.rag.DeleteStore(ctx, contractor.StoreName); err != nil {
			logger.Warn(ctx, "orphaned retrieval store, delete failed",
				"contractor_id", contractor.ID,
				"store", contractor.StoreName,
				"error", err,
			)
		}
	}

	files, err := h.store.ListContractorFiles(id)
	if err == nil {
		for _, f := range files {
			if f.ObjectPath == "" {
				continue
			}
			if err := h.minio.DeleteFile(ctx, f.ObjectPath); err != nil {
				logger.Warn(ctx, "stored proposal delete failed", "object", f.ObjectPath, "error", err)
			}
		}
	}

	if err := h.store.DeleteContractor(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contractor"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contractor deleted"})
}

type contractorFileView struct {
	model.ContractorFile
	// ViewURL is a presigned link to the stored original, empty when the
	// raw document is not in object storage or signing failed.
	ViewURL string `json:"view_url,omitempty"`
}

// ListFiles returns a contractor's uploaded documents with index state and
// a presigned viewing URL for each stored original.
func (h *ContractorHandler) ListFiles(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	if _, err := h.store.GetContractor(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contractor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contractor"})
		return
	}

	files, err := h.store.ListContractorFiles(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list files"})
		return
	}

	ctx := c.Request.Context()
	views := make([]contractorFileView, 0, len(files))
	for _, f := range files {
		view := contractorFileView{ContractorFile: f}
		if f.ObjectPath != "" {
			url, err := h.minio.GetPresignedURL(ctx, f.ObjectPath)
			if err != nil {
				logger.Warn(ctx, "presigned URL generation failed", "object", f.ObjectPath, "error", err)
			} else {
				view.ViewURL = url
			}
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"files": views})
}
