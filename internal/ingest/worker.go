// Package ingest processes attachment extraction jobs from the SQLite job
// queue: it pulls text out of uploaded evidence files (PDF or plain text),
// stores the extracted text on the attachment, and refreshes the parent
// complaint's evidence summary and tags.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/mkale/grievd/internal/nlp"
	"github.com/mkale/grievd/internal/storage"
)

// JobTypeAttachmentExtract is the queue type claimed by this worker.
const JobTypeAttachmentExtract = "attachment_extract"

const maxEvidenceLen = 4000

// JobStore abstracts the queue and record operations the worker needs.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetAttachment(id string) (storage.Attachment, error)
	SetAttachmentText(id, text string) error
	GetComplaint(id string) (storage.Complaint, error)
	ListAttachments(complaintID string) ([]storage.Attachment, error)
	UpdateComplaintEvidence(id, evidence, tags string) error
}

// Worker processes attachment_extract jobs.
type Worker struct {
	store    JobStore
	analyzer *nlp.Analyzer
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, analyzer *nlp.Analyzer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		analyzer: analyzer,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single attachment_extract job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeAttachmentExtract})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type extractPayload struct {
	AttachmentID string `json:"attachment_id"`
	ComplaintID  string `json:"complaint_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload extractPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	att, err := w.store.GetAttachment(payload.AttachmentID)
	if err != nil {
		return fmt.Errorf("loading attachment %s: %w", payload.AttachmentID, err)
	}

	text, err := ExtractText(att)
	if err != nil {
		return fmt.Errorf("extracting text from %s: %w", att.Filename, err)
	}

	if err := w.store.SetAttachmentText(att.ID, text); err != nil {
		return fmt.Errorf("storing extracted text: %w", err)
	}

	return w.refreshEvidence(payload.ComplaintID)
}

// refreshEvidence rebuilds the complaint's evidence summary and tag set from
// all of its attachments' extracted text.
func (w *Worker) refreshEvidence(complaintID string) error {
	complaint, err := w.store.GetComplaint(complaintID)
	if err != nil {
		return fmt.Errorf("loading complaint %s: %w", complaintID, err)
	}

	atts, err := w.store.ListAttachments(complaintID)
	if err != nil {
		return fmt.Errorf("listing attachments: %w", err)
	}

	var parts []string
	for _, a := range atts {
		if a.Text != "" {
			parts = append(parts, fmt.Sprintf("[%s] %s", a.Filename, a.Text))
		}
	}
	evidence := strings.Join(parts, "\n\n")
	if len(evidence) > maxEvidenceLen {
		evidence = evidence[:maxEvidenceLen]
	}

	analysis := w.analyzer.Analyze(complaint.Description + " " + evidence)

	tags := analysis.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	return w.store.UpdateComplaintEvidence(complaintID, evidence, string(tagsJSON))
}

// ExtractText pulls plain text out of an attachment. PDFs go through the pdf
// reader; anything with a text content type is used as-is. Other formats
// yield an empty string rather than an error so unsupported uploads do not
// poison the job queue.
func ExtractText(att storage.Attachment) (string, error) {
	switch {
	case att.ContentType == "application/pdf" || strings.HasSuffix(strings.ToLower(att.Filename), ".pdf"):
		return extractPDF(att.Data)
	case strings.HasPrefix(att.ContentType, "text/"), att.ContentType == "application/json":
		return strings.TrimSpace(string(att.Data)), nil
	default:
		return "", nil
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("draining pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
