// Package worker runs the PDF rendering loop: it long-polls the job queue,
// renders each job into a PDF and uploads the result to the object store.
// Delivery is at-least-once, so a job may be processed more than once; the
// deterministic object key makes the re-upload a harmless overwrite.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/profiledoc/profiledoc/internal/logging"
	"github.com/profiledoc/profiledoc/internal/server/config"
	"github.com/profiledoc/profiledoc/internal/server/models"
	"github.com/profiledoc/profiledoc/internal/server/pdf"
	"github.com/profiledoc/profiledoc/internal/server/queue"
	"github.com/profiledoc/profiledoc/internal/server/storage"
)

const (
	maxMessagesPerPoll = 10
	uploadRetries      = 3
	uploadRetryPause   = time.Second
)

// Worker consumes PDF jobs from the queue until its context is cancelled.
type Worker struct {
	queue        queue.Queue
	store        storage.ObjectStore
	renderer     pdf.Renderer
	logger       logging.Logger
	backoff      time.Duration
	storeTimeout time.Duration
}

func NewWorker(q queue.Queue, store storage.ObjectStore, renderer pdf.Renderer, logger logging.Logger, cfg *config.Config) *Worker {
	return &Worker{
		queue:        q,
		store:        store,
		renderer:     renderer,
		logger:       logger.With("component", "pdf-worker"),
		backoff:      cfg.WorkerBackoff,
		storeTimeout: cfg.ObjectStoreTimeout,
	}
}

// Run polls the queue until ctx is cancelled. Receive and processing errors
// are logged and followed by a fixed backoff; the loop itself never exits on
// error. A message already received when cancellation arrives is still
// processed to completion.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "worker stopped")
			return nil
		default:
		}

		msgs, err := w.queue.Receive(ctx, maxMessagesPerPoll)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info(ctx, "worker stopped")
				return nil
			}
			w.logger.Error(ctx, "error receiving messages", "error", err)
			w.sleep(ctx)
			continue
		}

		for _, msg := range msgs {
			if err := w.process(ctx, msg); err != nil {
				// leave the message undeleted so the queue redelivers it
				w.logger.Error(ctx, "error processing message", "error", err)
				w.sleep(ctx)
			}
		}
	}
}

// process handles one delivery. The message is deleted only after the
// rendered document is safely in the object store; a malformed payload is
// the exception and gets deleted immediately since no retry can fix it.
// Store and queue calls run on a context detached from run cancellation, so
// a message received before shutdown is still finished; each store call
// carries its own timeout.
func (w *Worker) process(ctx context.Context, msg queue.Message) error {
	opCtx := context.WithoutCancel(ctx)

	var job models.PDFJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.logger.Warn(ctx, "dropping malformed message", "error", err)
		return w.queue.Delete(opCtx, msg.ReceiptHandle)
	}

	log := w.logger.With("job_id", job.JobID)
	log.Info(ctx, "processing pdf job", "user_id", job.UserData.ID)

	data, err := w.renderer.RenderProfile(job.UserData)
	if err != nil {
		return err
	}

	if err := w.upload(opCtx, job.FileName(), data); err != nil {
		return err
	}

	if err := w.queue.Delete(opCtx, msg.ReceiptHandle); err != nil {
		// the upload already succeeded; redelivery just overwrites the
		// same object, so log and move on
		log.Warn(ctx, "error deleting message after upload", "error", err)
		return nil
	}

	log.Info(ctx, "pdf job completed", "file_name", job.FileName())
	return nil
}

func (w *Worker) upload(ctx context.Context, key string, data []byte) error {
	b := retry.WithMaxRetries(uploadRetries, retry.NewConstant(uploadRetryPause))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		uctx, cancel := context.WithTimeout(ctx, w.storeTimeout)
		defer cancel()
		if err := w.store.Upload(uctx, key, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// sleep pauses for the configured backoff but wakes immediately on
// cancellation.
func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
