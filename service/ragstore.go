package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
)

// Adapter-scoped failures. Callers match with errors.Is.
var (
	// ErrStoreCreation means the engine did not return a usable store
	// reference. Fatal to the whole ingestion call.
	ErrStoreCreation = errors.New("store creation failed")
	// ErrUploadFailed means the engine reported a terminal failure for one
	// document. Scoped to that document only.
	ErrUploadFailed = errors.New("document upload failed")
	// ErrUploadTimeout means the engine never settled the upload operation
	// before the configured deadline.
	ErrUploadTimeout = errors.New("document upload timed out")
)

// engineClient is the slice of the engine API the adapter needs. The
// concrete client is injected so tests can substitute a fake.
type engineClient interface {
	CreateStore(ctx context.Context, displayName string) (string, error)
	UploadFile(ctx context.Context, filename, mimeType string, data []byte) (*RemoteFile, error)
	GetFile(ctx context.Context, name string) (*RemoteFile, error)
	ImportFile(ctx context.Context, storeName, fileName string) error
	DeleteStore(ctx context.Context, name string, force bool) error
	ListFiles(ctx context.Context, pageSize int) ([]RemoteFile, error)
}

// RagStoreService owns the lifecycle of per-contractor retrieval stores and
// the polling discipline for asynchronous document indexing.
type RagStoreService struct {
	engine        engineClient
	pollInterval  time.Duration
	uploadTimeout time.Duration
	listPageSize  int
}

func NewRagStoreService(engine engineClient, pollInterval, uploadTimeout time.Duration, listPageSize int) *RagStoreService {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	if uploadTimeout <= 0 {
		uploadTimeout = 5 * time.Minute
	}
	if listPageSize <= 0 {
		listPageSize = 100
	}
	return &RagStoreService{
		engine:        engine,
		pollInterval:  pollInterval,
		uploadTimeout: uploadTimeout,
		listPageSize:  listPageSize,
	}
}

// CreateStore creates a retrieval store and returns its reference. Callers
// must persist the reference only after this returns without error.
func (s *RagStoreService) CreateStore(ctx context.Context, displayName string) (string, error) {
	name, err := s.engine.CreateStore(ctx, displayName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreCreation, err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: engine returned no store reference", ErrStoreCreation)
	}
	return name, nil
}

// UploadDocument submits one document, waits for the engine to finish
// processing it, then imports it into the store. The wait is a bounded poll
// loop: one status check per poll interval until the file settles, the
// deadline passes, or ctx is cancelled.
func (s *RagStoreService) UploadDocument(ctx context.Context, storeName, filename, mimeType string, data []byte) (*RemoteFile, error) {
	file, err := s.engine.UploadFile(ctx, filename, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	file, err = s.waitForFile(ctx, file)
	if err != nil {
		return nil, err
	}

	if err := s.engine.ImportFile(ctx, storeName, file.Name); err != nil {
		return nil, fmt.Errorf("%w: import into store: %v", ErrUploadFailed, err)
	}
	return file, nil
}

func (s *RagStoreService) waitForFile(ctx context.Context, file *RemoteFile) (*RemoteFile, error) {
	deadline := time.Now().Add(s.uploadTimeout)
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for {
		switch file.State {
		case FileStateActive:
			return file, nil
		case FileStateFailed:
			msg := file.Error.Message
			if msg == "" {
				msg = "engine reported file processing failure"
			}
			return nil, fmt.Errorf("%w: %s: %s", ErrUploadFailed, file.Name, msg)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s still %s after %s", ErrUploadTimeout, file.Name, file.State, s.uploadTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		timer.Reset(s.pollInterval)

		next, err := s.engine.GetFile(ctx, file.Name)
		if err != nil {
			// Transient status-check failures do not fail the upload;
			// the next tick retries until the deadline.
			logger.Warn(ctx, "file status check failed", "file", file.Name, "error", err)
			continue
		}
		file = next
	}
}

// DeleteStore removes a store. Idempotent for callers: deleting an absent
// store is not an error.
func (s *RagStoreService) DeleteStore(ctx context.Context, name string) error {
	return s.engine.DeleteStore(ctx, name, true)
}

// ListDocuments returns metadata for all stored documents. Permission
// errors from the engine degrade to an empty listing.
func (s *RagStoreService) ListDocuments(ctx context.Context) ([]RemoteFile, error) {
	files, err := s.engine.ListFiles(ctx, s.listPageSize)
	if err != nil {
		var engineErr *EngineError
		if errors.As(err, &engineErr) && (engineErr.StatusCode == http.StatusForbidden || engineErr.StatusCode == http.StatusUnauthorized) {
			logger.Warn(ctx, "file listing denied by engine, returning empty", "status", engineErr.StatusCode)
			return nil, nil
		}
		return nil, err
	}
	return files, nil
}
