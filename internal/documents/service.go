package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"ingest-gateway/internal/queue"
	"ingest-gateway/internal/shared/auth"
	"ingest-gateway/internal/shared/metrics"
	"ingest-gateway/internal/shared/storage/object"
	"ingest-gateway/internal/shared/telemetry"
)

const (
	DefaultBucket = "pdfs"

	defaultStorageTimeout  = 10 * time.Second
	defaultDatabaseTimeout = 5 * time.Second
	defaultQueueTimeout    = 3 * time.Second
)

// Timeouts bounds each ingest step. Zero values use the defaults.
type Timeouts struct {
	Storage  time.Duration
	Database time.Duration
	Queue    time.Duration
}

// Service runs the ingest pipeline: store the object, record the document,
// enqueue the processing job.
type Service struct {
	Store     object.ObjectStore
	Bucket    string
	Repo      DocumentsRepo
	Queue     queue.Client
	QueueName string
	Timeouts  Timeouts
	Now       func() time.Time
}

// Ingest stores one uploaded PDF for identity. Validation failures have no side
// effects. A storage failure commits nothing; a persistence failure leaves the
// stored object orphaned; a dispatch failure still returns the saved document
// with Dispatched=false.
func (s *Service) Ingest(ctx context.Context, identity auth.Identity, req IngestRequest) (IngestResult, error) {
	if identity.OwnerID == "" {
		metrics.RecordIngest("unauthorized")
		return IngestResult{}, fmt.Errorf("%w: no owner", auth.ErrUnauthorized)
	}

	name, err := checkRequest(req)
	if err != nil {
		metrics.RecordIngest("rejected")
		return IngestResult{}, err
	}
	data, err := readPayload(req)
	if err != nil {
		metrics.RecordIngest("rejected")
		return IngestResult{}, err
	}

	// Once the first write starts the sequence runs to completion even if the
	// client goes away.
	ctx = context.WithoutCancel(ctx)
	bucket := s.bucket()
	key := storageKey(s.now(), name)

	var storagePath string
	err = s.step(ctx, "storage", s.Timeouts.Storage, defaultStorageTimeout, func(ctx context.Context) error {
		var putErr error
		storagePath, putErr = s.Store.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), req.ContentType)
		return putErr
	})
	if err != nil {
		metrics.RecordIngest("storage_failed")
		return IngestResult{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	metrics.RecordUploadBytes(int64(len(data)))

	pages := countPages(data)
	var doc Document
	err = s.step(ctx, "database", s.Timeouts.Database, defaultDatabaseTimeout, func(ctx context.Context) error {
		var createErr error
		doc, createErr = s.Repo.Create(ctx, NewDocument{
			OriginalName: req.FileName,
			StoragePath:  storagePath,
			OwnerID:      identity.OwnerID,
			Metadata: Metadata{
				Size:  int64(len(data)),
				Type:  req.ContentType,
				Pages: pages,
			},
		})
		return createErr
	})
	if err != nil {
		metrics.RecordIngest("persistence_failed")
		telemetry.Error("ingest.orphaned_object", map[string]any{
			"bucket":       bucket,
			"storage_path": storagePath,
			"user_id":      identity.OwnerID,
			"error":        err.Error(),
		})
		return IngestResult{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	result := IngestResult{Document: doc}
	if err := s.dispatch(ctx, doc); err != nil {
		metrics.RecordIngest("created_undispatched")
		telemetry.Error("ingest.dispatch_failed", map[string]any{
			"document_id":  doc.ID,
			"storage_path": doc.StoragePath,
			"user_id":      doc.OwnerID,
			"error":        err.Error(),
		})
		result.DispatchErr = fmt.Errorf("%w: %w", ErrDispatchFailed, err)
		return result, nil
	}

	result.Dispatched = true
	metrics.RecordIngest("created")
	telemetry.Info("ingest.queued", map[string]any{
		"document_id": doc.ID,
		"queue":       s.queueName(),
	})
	return result, nil
}

// List returns every document, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(s.Timeouts.Database, defaultDatabaseTimeout))
	defer cancel()
	docs, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns one document by id.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	if id <= 0 {
		return Document{}, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(s.Timeouts.Database, defaultDatabaseTimeout))
	defer cancel()
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) dispatch(ctx context.Context, doc Document) error {
	if s.Queue == nil {
		return queue.ErrDisabled
	}
	return s.step(ctx, "queue", s.Timeouts.Queue, defaultQueueTimeout, func(ctx context.Context) error {
		return s.Queue.Enqueue(ctx, s.queueName(), queue.Job{
			DocumentID: doc.ID,
			FilePath:   doc.StoragePath,
			UserID:     doc.OwnerID,
		})
	})
}

func (s *Service) step(ctx context.Context, name string, timeout, fallback time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, orDefault(timeout, fallback))
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	metrics.ObserveStep(name, status, time.Since(start))
	return err
}

func (s *Service) bucket() string {
	if s.Bucket == "" {
		return DefaultBucket
	}
	return s.Bucket
}

func (s *Service) queueName() string {
	if s.QueueName == "" {
		return queue.QueueName
	}
	return s.QueueName
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func storageKey(now time.Time, name string) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), name)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
