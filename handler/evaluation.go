package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/config"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/service"
)

const defaultHistoryPageSize = 10

type EvaluationHandler struct {
	store  *service.Store
	ingest *service.IngestService
	eval   *service.EvalService
	minio  *service.MinioService
	genai  *service.GenAIService
	upload config.UploadConfig
}

func NewEvaluationHandler(store *service.Store, ingest *service.IngestService, eval *service.EvalService, minio *service.MinioService, genai *service.GenAIService, upload config.UploadConfig) *EvaluationHandler {
	return &EvaluationHandler{
		store:  store,
		ingest: ingest,
		eval:   eval,
		minio:  minio,
		genai:  genai,
		upload: upload,
	}
}

// ProcessFiles accepts multipart proposal documents, stores the raw bytes
// in object storage and pushes them into the contractor's retrieval store.
func (h *EvaluationHandler) ProcessFiles(c *gin.Context) {
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

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	maxSize := int64(h.upload.MaxFileSizeMB) * 1024 * 1024
	ctx := c.Request.Context()
	ingestFiles := make([]service.IngestFile, 0, len(headers))

	for _, header := range headers {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".pdf" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Only PDF files are allowed: %s", header.Filename)})
			return
		}
		if header.Size > maxSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File exceeds %dMB limit: %s", h.upload.MaxFileSizeMB, header.Filename)})
			return
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file: " + header.Filename})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file: " + header.Filename})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = "application/pdf"
		}

		objectName := service.ObjectName(contractor.ID, header.Filename)
		if err := h.minio.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file: " + err.Error()})
			return
		}

		ingestFiles = append(ingestFiles, service.IngestFile{
			Filename:   header.Filename,
			MimeType:   contentType,
			ObjectPath: objectName,
			Data:       data,
		})
	}

	report, err := h.ingest.Ingest(ctx, contractor, ingestFiles)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFiles):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No files to process"})
		case errors.Is(err, service.ErrStoreCreation):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create retrieval store: " + err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Processed %d files", len(ingestFiles)),
		"report":  report,
	})
}

type EvaluateRequest struct {
	// Criteria as free text, one criterion per line.
	Criteria string `json:"criteria"`
	// Prompts as an explicit list; takes priority when non-empty.
	Prompts []string `json:"prompts"`
}

// Evaluate runs the criteria batch against the contractor's store and
// returns one outcome per criterion, failures inline.
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
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

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Both input forms get the same normalization: trimmed, blanks dropped.
	text := req.Criteria
	if len(req.Prompts) > 0 {
		text = strings.Join(req.Prompts, "\n")
	}
	criteria := service.ParseCriteria(text)

	outcomes, err := h.eval.Evaluate(c.Request.Context(), contractor, criteria)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContractorNotReady):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Contractor has no indexed documents. Upload and process files first."})
		case errors.Is(err, service.ErrNoCriteria):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No evaluation criteria given"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Evaluation failed: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

// History returns a page of the contractor's evaluation history in
// insertion order.
func (h *EvaluationHandler) History(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	page, err := positiveQueryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	pageSize, err := positiveQueryInt(c, "page_size", defaultHistoryPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size"})
		return
	}

	results, err := h.store.ListEvaluationResults(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   service.Paginate(results, pageSize, page),
		"total":     len(results),
		"page":      page,
		"page_size": pageSize,
	})
}

// Export streams the contractor's full history as an Excel-compatible
// table.
func (h *EvaluationHandler) Export(c *gin.Context) {
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

	results, err := h.store.ListEvaluationResults(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	data, err := service.ExportTable(contractor.Name, results)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ExportFilename(contractor.Name)))
	c.Data(http.StatusOK, service.ExportContentType, data)
}

// SuggestCriteria asks the engine for example evaluation criteria based on
// the contractor's indexed documents.
func (h *EvaluationHandler) SuggestCriteria(c *gin.Context) {
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
	if !contractor.Ready() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contractor has no indexed documents"})
		return
	}

	criteria, err := h.genai.SuggestCriteria(c.Request.Context(), contractor.StoreName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate criteria: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"criteria": criteria})
}

func positiveQueryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}
