// Package api exposes the grievance engine over HTTP: the public chat and
// complaint endpoints, the token-guarded admin surface, and the MCP tool
// server.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkale/grievd/internal/composer"
	"github.com/mkale/grievd/internal/dialog"
	"github.com/mkale/grievd/internal/nlp"
	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/storage"
	"github.com/mkale/grievd/internal/taxonomy"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the collaborators for the HTTP surface.
type Deps struct {
	Engine   *dialog.Engine
	Store    *storage.Store
	Analyzer *nlp.Analyzer
	Taxonomy *taxonomy.Taxonomy
	Composer *composer.Composer

	// AdminToken guards the admin routes; when empty they are not mounted.
	AdminToken string

	Logger *slog.Logger
}

// NewHandler builds the chi router for the public and admin API.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/api/chat", handleChat(deps))
	r.Post("/api/complaints", handleCreateComplaint(deps))
	r.Get("/api/complaints/{trackingID}", handleGetComplaint(deps))

	if deps.AdminToken != "" {
		r.Route("/api/admin", func(admin chi.Router) {
			admin.Use(BearerAuth(deps.AdminToken))
			admin.Get("/complaints", handleListComplaints(deps))
			admin.Patch("/complaints/{trackingID}", handleUpdateComplaint(deps))
			admin.Post("/complaints/{trackingID}/attachments", handleUploadAttachment(deps))
		})
	}

	return r
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Engine.Process(r.Context(), req.SessionID, req.Message)
		if err != nil {
			if errors.Is(err, dialog.ErrEmptySessionID) || errors.Is(err, dialog.ErrEmptyMessage) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "processing message: %v", err)
			return
		}

		var reply string
		switch res.Kind {
		case dialog.ReplyResult:
			reply = res.Text
		case dialog.SubmitResult:
			reply = deps.finishSubmission(req.SessionID, res.Draft)
		case dialog.TrackResult:
			reply = deps.trackingReply(res.TrackingID)
			deps.Engine.RecordReply(req.SessionID, reply)
		case dialog.StatsResult:
			reply = deps.statsReply()
			deps.Engine.RecordReply(req.SessionID, reply)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatResponse{SessionID: req.SessionID, Reply: reply})
	}
}

// finishSubmission persists a confirmed draft and always resets the filing
// state afterwards; a failed save costs the user a restart, not a stuck
// session.
func (deps Deps) finishSubmission(sessionID string, draft session.Draft) string {
	defer deps.Engine.FinishFiling(sessionID)

	complaint, err := deps.submitComplaint(draft, "chat")
	var reply string
	if err != nil {
		deps.Logger.Error("complaint submission failed", "session", sessionID, "error", err)
		reply = deps.Composer.FilingFailure()
	} else {
		deps.Logger.Info("complaint filed",
			"session", sessionID, "tracking_id", complaint.TrackingID, "department", complaint.Department)
		reply = deps.Composer.FilingSuccess(complaint.TrackingID, draft, complaint.Priority, complaint.Sentiment)
	}
	deps.Engine.RecordReply(sessionID, reply)
	return reply
}

// submitComplaint runs triage over the draft, allocates a unique tracking ID,
// and persists the complaint record.
func (deps Deps) submitComplaint(draft session.Draft, source string) (storage.Complaint, error) {
	analysis := deps.Analyzer.Analyze(draft.Description)

	trackingID, err := deps.newUniqueTrackingID()
	if err != nil {
		return storage.Complaint{}, err
	}

	ctype := "Public"
	if deps.Taxonomy.IsInternal(draft.Department) {
		ctype = "Internal"
	}

	keywords, err := json.Marshal(analysis.Keywords)
	if err != nil {
		return storage.Complaint{}, fmt.Errorf("marshaling keywords: %w", err)
	}
	tags, err := json.Marshal(analysis.Tags)
	if err != nil {
		return storage.Complaint{}, fmt.Errorf("marshaling tags: %w", err)
	}

	c := storage.Complaint{
		ID:             uuid.New().String(),
		TrackingID:     trackingID,
		SubmitterName:  draft.Name,
		SubmitterEmail: draft.Email,
		Department:     draft.Department,
		Category:       draft.Category,
		Description:    draft.Description,
		Type:           ctype,
		Status:         "Pending",
		Priority:       analysis.Priority,
		Sentiment:      analysis.Sentiment,
		Urgency:        analysis.Urgency,
		Keywords:       string(keywords),
		Tags:           string(tags),
		Source:         source,
	}
	if err := deps.Store.SaveComplaint(c); err != nil {
		return storage.Complaint{}, fmt.Errorf("saving complaint: %w", err)
	}
	return c, nil
}

func (deps Deps) newUniqueTrackingID() (string, error) {
	for i := 0; i < 10; i++ {
		id, err := storage.NewTrackingID()
		if err != nil {
			return "", err
		}
		exists, err := deps.Store.TrackingIDExists(id)
		if err != nil {
			return "", fmt.Errorf("checking tracking id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", errors.New("could not allocate a unique tracking id")
}

func (deps Deps) trackingReply(trackingID string) string {
	c, err := deps.Store.GetComplaintByTrackingID(trackingID)
	if errors.Is(err, storage.ErrNotFound) {
		return deps.Composer.StatusNotFound(trackingID)
	}
	if err != nil {
		deps.Logger.Error("tracking lookup failed", "tracking_id", trackingID, "error", err)
		return deps.Composer.StatusNotFound(trackingID)
	}
	return deps.Composer.StatusReport(composer.StatusFields{
		TrackingID: c.TrackingID,
		Status:     c.Status,
		Department: c.Department,
		Category:   c.Category,
		Priority:   c.Priority,
		FiledAt:    c.CreatedAt,
		AdminReply: c.AdminReply,
	})
}

func (deps Deps) statsReply() string {
	counts, err := deps.Store.CountByStatus()
	if err != nil {
		deps.Logger.Error("stats query failed", "error", err)
		return deps.Composer.StatsReport(composer.StatsCounts{})
	}
	return deps.Composer.StatsReport(composer.StatsCounts{
		Total:      counts["total"],
		Pending:    counts["Pending"],
		InProgress: counts["In Progress"],
		Resolved:   counts["Resolved"],
		Rejected:   counts["Rejected"],
	})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
