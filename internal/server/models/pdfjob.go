package models

import "time"

// PDFJobUser is the user snapshot a worker needs to render a profile PDF.
// The date of birth travels as "2006-01-02" so the payload stays stable
// across producer and consumer versions.
type PDFJobUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
}

// PDFJob is the queue message for one profile-PDF rendering job. Queue
// metadata (receipt handle, visibility timeout) is owned by the queue,
// not by this payload.
type PDFJob struct {
	JobID    string     `json:"job_id"`
	UserData PDFJobUser `json:"user_data"`
}

// FileName returns the deterministic object-store key for this job.
// Re-uploading under the same key is safe, which keeps redelivered
// jobs idempotent.
func (j *PDFJob) FileName() string {
	return j.JobID + ".pdf"
}

// NewPDFJobUser converts a User into the queue snapshot form.
func NewPDFJobUser(u *User) PDFJobUser {
	return PDFJobUser{
		ID:          u.ID,
		Name:        u.Name,
		Surname:     u.Surname,
		Email:       u.Email,
		DateOfBirth: u.DateOfBirth.Format(time.DateOnly),
	}
}
