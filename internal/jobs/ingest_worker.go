package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/service"
	"github.com/recollect-labs/recollect/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a failed ingest job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one pass claims
	claimBatchSize = 50
)

// IngestJobStore defines the interface for ingest job persistence
type IngestJobStore interface {
	// ClaimPending retrieves and claims pending ingest jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus updates the status of an ingest job
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// ContentStore loads the content item an ingest job points at
type ContentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Content, error)
}

// Ingestor turns one content item into indexed chunks
type Ingestor interface {
	Ingest(ctx context.Context, content *domain.Content, extracted string) (int, error)
}

// IngestWorker drains the ingest job queue: for each claimed job it loads
// the content, extracts link text, and runs the chunk-embed-upsert pipeline.
type IngestWorker struct {
	jobs      IngestJobStore
	contents  ContentStore
	extractor service.ContentExtractor
	ingestor  Ingestor
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(jobs IngestJobStore, contents ContentStore, extractor service.ContentExtractor, ingestor Ingestor) *IngestWorker {
	return &IngestWorker{
		jobs:      jobs,
		contents:  contents,
		extractor: extractor,
		ingestor:  ingestor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.jobs.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestWorker.processJob", telemetry.SpanAttributes{
		ContentID: job.ContentID,
		JobID:     job.ID,
		Operation: "ingest",
	})
	defer span.End()

	content, err := w.contents.GetByID(ctx, job.ContentID)
	if err != nil {
		// Content deleted after the job was queued is terminal, not retryable
		if err == domain.ErrContentNotFound {
			return w.jobs.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, "content no longer exists")
		}
		return w.handleJobFailure(ctx, job, err)
	}

	var extracted string
	if w.extractor != nil && content.Link != "" {
		extracted = w.extractor.Extract(ctx, content.Type, content.Link)
	}

	count, err := w.ingestor.Ingest(ctx, content, extracted)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: %d chunks indexed for content %s", job.ID, count, content.ID)
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.jobs.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.IngestJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
