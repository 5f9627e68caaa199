package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkale/grievd/internal/ingest"
	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/storage"
)

const maxAttachmentSize = 10 << 20 // 10MB

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validStatuses = map[string]bool{
	"Pending":     true,
	"In Progress": true,
	"Resolved":    true,
	"Rejected":    true,
}

type ComplaintRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type ComplaintResponse struct {
	TrackingID string `json:"tracking_id"`
	Status     string `json:"status"`
	Department string `json:"department"`
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Type       string `json:"type"`
	AdminReply string `json:"admin_reply,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toComplaintResponse(c storage.Complaint) ComplaintResponse {
	return ComplaintResponse{
		TrackingID: c.TrackingID,
		Status:     c.Status,
		Department: c.Department,
		Category:   c.Category,
		Priority:   c.Priority,
		Type:       c.Type,
		AdminReply: c.AdminReply,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}

// handleCreateComplaint accepts a complete complaint in one request, the
// web-form counterpart of the chat filing flow.
func handleCreateComplaint(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ComplaintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name must be 2-100 characters")
			return
		}
		if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid email address")
			return
		}
		dept, ok := deps.Taxonomy.MatchDepartment(req.Department)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown department %q", req.Department)
			return
		}
		cat, ok := deps.Taxonomy.MatchCategory(req.Category)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown category %q", req.Category)
			return
		}
		desc := strings.TrimSpace(req.Description)
		if n := utf8.RuneCountInString(desc); n < 10 || n > 2000 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "description must be 10-2000 characters")
			return
		}

		draft := session.Draft{
			Name:        name,
			Email:       strings.TrimSpace(req.Email),
			Department:  dept,
			Category:    cat,
			Description: desc,
		}
		c, err := deps.submitComplaint(draft, "web")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to submit complaint: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(toComplaintResponse(c))
	}
}

func handleGetComplaint(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackingID := chi.URLParam(r, "trackingID")

		c, err := deps.Store.GetComplaintByTrackingID(trackingID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no complaint with tracking id %q", trackingID)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "looking up complaint: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toComplaintResponse(c))
	}
}

// --- admin handlers ---

type adminComplaint struct {
	ComplaintResponse
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
	Description    string `json:"description"`
	Sentiment      string `json:"sentiment"`
	Urgency        int    `json:"urgency"`
	Keywords       string `json:"keywords"`
	Tags           string `json:"tags"`
	Source         string `json:"source"`
	Evidence       string `json:"evidence,omitempty"`
}

func toAdminComplaint(c storage.Complaint) adminComplaint {
	return adminComplaint{
		ComplaintResponse: toComplaintResponse(c),
		SubmitterName:     c.SubmitterName,
		SubmitterEmail:    c.SubmitterEmail,
		Description:       c.Description,
		Sentiment:         c.Sentiment,
		Urgency:           c.Urgency,
		Keywords:          c.Keywords,
		Tags:              c.Tags,
		Source:            c.Source,
		Evidence:          c.Evidence,
	}
}

func handleListComplaints(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be an integer in [1,500]")
				return
			}
			limit = n
		}

		complaints, err := deps.Store.ListRecentComplaints(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing complaints: %v", err)
			return
		}

		out := make([]adminComplaint, len(complaints))
		for i, c := range complaints {
			out[i] = toAdminComplaint(c)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

type updateComplaintRequest struct {
	Status     string `json:"status"`
	AdminReply string `json:"admin_reply"`
}

func handleUpdateComplaint(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackingID := chi.URLParam(r, "trackingID")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req updateComplaintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if !validStatuses[req.Status] {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid status %q", req.Status)
			return
		}

		err := deps.Store.UpdateComplaintStatus(trackingID, req.Status, req.AdminReply)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no complaint with tracking id %q", trackingID)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "updating complaint: %v", err)
			return
		}

		c, err := deps.Store.GetComplaintByTrackingID(trackingID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reloading complaint: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toAdminComplaint(c))
	}
}

// handleUploadAttachment stores an evidence file and queues it for text
// extraction by the ingest worker.
func handleUploadAttachment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trackingID := chi.URLParam(r, "trackingID")

		c, err := deps.Store.GetComplaintByTrackingID(trackingID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no complaint with tracking id %q", trackingID)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "looking up complaint: %v", err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentSize)
		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing file field: %v", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading file: %v", err)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		att := storage.Attachment{
			ID:          uuid.New().String(),
			ComplaintID: c.ID,
			Filename:    header.Filename,
			ContentType: contentType,
			Data:        data,
		}
		if err := deps.Store.SaveAttachment(att); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving attachment: %v", err)
			return
		}

		payload, err := json.Marshal(map[string]string{
			"attachment_id": att.ID,
			"complaint_id":  c.ID,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "building job payload: %v", err)
			return
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobTypeAttachmentExtract,
			PayloadJSON: string(payload),
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saved attachment but failed to queue extraction: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"id":     att.ID,
			"status": "queued",
		})
	}
}
