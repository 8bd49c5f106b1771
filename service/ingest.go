package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
)

// ErrNoFiles rejects an ingest call with an empty file list. Precondition,
// not a runtime failure.
var ErrNoFiles = errors.New("no files to ingest")

// IngestFile is one raw document handed to the pipeline.
type IngestFile struct {
	Filename   string
	MimeType   string
	ObjectPath string // where the raw bytes landed in object storage
	Data       []byte
}

// FileStatus is the per-file outcome of an ingestion run.
type FileStatus struct {
	Filename string `json:"filename"`
	Indexed  bool   `json:"indexed"`
	Error    string `json:"error,omitempty"`
}

// IngestReport aggregates what actually landed in the retrieval store.
type IngestReport struct {
	StoreName string       `json:"store_name"`
	Files     []FileStatus `json:"files"`
	Indexed   int          `json:"indexed"`
	Failed    int          `json:"failed"`
}

// IngestService pushes contractor documents into the retrieval store and
// records per-file state.
type IngestService struct {
	rag   *RagStoreService
	store *Store
}

func NewIngestService(rag *RagStoreService, store *Store) *IngestService {
	return &IngestService{rag: rag, store: store}
}

// Ingest uploads files for one contractor. The store is created on first
// use; creation failure aborts the whole call with no state change. File
// uploads are independent: each failure is recorded and the rest proceed.
// The contractor becomes ready once its store reference is persisted, even
// if only part of the batch indexed.
func (s *IngestService) Ingest(ctx context.Context, contractor *model.Contractor, files []IngestFile) (*IngestReport, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	storeName := contractor.StoreName
	if storeName == "" {
		displayName := fmt.Sprintf("evaluation_%d_%d", contractor.ID, time.Now().Unix())
		created, err := s.rag.CreateStore(ctx, displayName)
		if err != nil {
			return nil, err
		}
		if err := s.store.SetContractorStore(contractor.ID, created); err != nil {
			// The remote store exists but is not linked; report and let the
			// caller retry, it will create a fresh one.
			return nil, fmt.Errorf("failed to link store to contractor: %w", err)
		}
		storeName = created
		contractor.StoreName = created
		logger.Info(ctx, "retrieval store created", "contractor_id", contractor.ID, "store", created)
	}

	report := &IngestReport{StoreName: storeName}
	for _, f := range files {
		record := &model.ContractorFile{
			ContractorID: contractor.ID,
			Filename:     f.Filename,
			ObjectPath:   f.ObjectPath,
			IsIndexed:    false,
		}
		if err := s.store.CreateContractorFile(record); err != nil {
			return report, fmt.Errorf("failed to persist file record for %s: %w", f.Filename, err)
		}

		remote, err := s.rag.UploadDocument(ctx, storeName, f.Filename, f.MimeType, f.Data)
		if err != nil {
			logger.Warn(ctx, "document not indexed", "filename", f.Filename, "error", err)
			report.Files = append(report.Files, FileStatus{Filename: f.Filename, Error: err.Error()})
			report.Failed++
			continue
		}

		if err := s.store.MarkFileIndexed(record.ID, remote.Name, remote.URI); err != nil {
			return report, fmt.Errorf("failed to mark %s indexed: %w", f.Filename, err)
		}
		report.Files = append(report.Files, FileStatus{Filename: f.Filename, Indexed: true})
		report.Indexed++
	}

	logger.Info(ctx, "ingestion finished",
		"contractor_id", contractor.ID,
		"indexed", report.Indexed,
		"failed", report.Failed,
	)
	return report, nil
}
