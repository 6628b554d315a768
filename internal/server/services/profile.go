package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/profiledoc/profiledoc/internal/server/models"
	"github.com/profiledoc/profiledoc/internal/server/pdf"
	"github.com/profiledoc/profiledoc/internal/server/queue"
	"github.com/profiledoc/profiledoc/internal/server/storage"
)

// PDFJobTicket is what a client gets back after enqueuing an async profile
// render: the job identifier and the link where the document will appear.
type PDFJobTicket struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
	Link     string `json:"link"`
}

// ProfileService orchestrates the two profile-document paths: synchronous
// render-and-return, and the async enqueue → worker → object store pipeline.
type ProfileService struct {
	queue    queue.Queue
	store    storage.ObjectStore
	renderer pdf.Renderer
}

// NewProfileService constructs a ProfileService.
func NewProfileService(q queue.Queue, store storage.ObjectStore, renderer pdf.Renderer) *ProfileService {
	return &ProfileService{queue: q, store: store, renderer: renderer}
}

// RenderProfile produces the profile PDF synchronously.
func (s *ProfileService) RenderProfile(ctx context.Context, user *models.User) ([]byte, error) {
	return s.renderer.RenderProfile(models.NewPDFJobUser(user))
}

// EnqueueProfile submits an async render job for the given user and returns
// a ticket with the job id and the deterministic retrieval link. The worker
// picks the job up from the queue.
func (s *ProfileService) EnqueueProfile(ctx context.Context, user *models.User) (*PDFJobTicket, error) {
	job := &models.PDFJob{
		JobID:    uuid.New().String(),
		UserData: models.NewPDFJobUser(user),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshaling pdf job: %w", err)
	}

	if err := s.queue.Send(ctx, body); err != nil {
		return nil, err
	}

	return &PDFJobTicket{
		JobID:    job.JobID,
		FileName: job.FileName(),
		Link:     s.store.URL(job.FileName()),
	}, nil
}

// FetchProfile retrieves a rendered document from the object store by file
// name. Missing documents yield common.ErrorNotFound: either the job is
// still in flight or the name is wrong; this layer cannot tell.
func (s *ProfileService) FetchProfile(ctx context.Context, fileName string) ([]byte, error) {
	return s.store.Get(ctx, fileName)
}
