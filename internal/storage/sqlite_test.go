package storage

import (
	"fmt"
	"regexp"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testComplaint(n int) Complaint {
	return Complaint{
		ID:             fmt.Sprintf("id-%d", n),
		TrackingID:     fmt.Sprintf("GR00000%dABCDEF", n),
		SubmitterName:  "Jane Doe",
		SubmitterEmail: "jane@example.com",
		Department:     "Municipal Services",
		Category:       "Water Supply",
		Description:    "My water heater has been broken for five days",
		Source:         "chat",
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestIndexesExist verifies the migration created the lookup indexes.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_complaints_tracking", "idx_complaints_status", "idx_complaints_created", "idx_attachments_complaint", "idx_jobs_status_run_after"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestComplaintRoundTrip(t *testing.T) {
	s := openTestStore(t)

	c := testComplaint(1)
	if err := s.SaveComplaint(c); err != nil {
		t.Fatalf("SaveComplaint: %v", err)
	}

	got, err := s.GetComplaintByTrackingID(c.TrackingID)
	if err != nil {
		t.Fatalf("GetComplaintByTrackingID: %v", err)
	}
	if got.SubmitterName != c.SubmitterName || got.Department != c.Department || got.Description != c.Description {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.Status != "Pending" {
		t.Errorf("Status = %q, want default Pending", got.Status)
	}
	if got.Priority != "Medium" {
		t.Errorf("Priority = %q, want default Medium", got.Priority)
	}
	if got.Type != "Public" {
		t.Errorf("Type = %q, want default Public", got.Type)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}
}

func TestGetComplaintNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetComplaintByTrackingID("GR999999ZZZZZZ"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetComplaint("missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTrackingIDExists(t *testing.T) {
	s := openTestStore(t)

	c := testComplaint(1)
	if err := s.SaveComplaint(c); err != nil {
		t.Fatalf("SaveComplaint: %v", err)
	}

	exists, err := s.TrackingIDExists(c.TrackingID)
	if err != nil {
		t.Fatalf("TrackingIDExists: %v", err)
	}
	if !exists {
		t.Error("expected tracking ID to exist")
	}

	exists, err = s.TrackingIDExists("GR999999ZZZZZZ")
	if err != nil {
		t.Fatalf("TrackingIDExists: %v", err)
	}
	if exists {
		t.Error("expected unknown tracking ID to not exist")
	}
}

func TestListRecentComplaintsOrder(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		c := testComplaint(i)
		c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		c.UpdatedAt = c.CreatedAt
		if err := s.SaveComplaint(c); err != nil {
			t.Fatalf("SaveComplaint %d: %v", i, err)
		}
	}

	got, err := s.ListRecentComplaints(3)
	if err != nil {
		t.Fatalf("ListRecentComplaints: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d complaints, want 3", len(got))
	}
	if got[0].ID != "id-4" || got[2].ID != "id-2" {
		t.Errorf("wrong order: %s .. %s", got[0].ID, got[2].ID)
	}
}

func TestCountByStatus(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.SaveComplaint(testComplaint(i)); err != nil {
			t.Fatalf("SaveComplaint: %v", err)
		}
	}
	if err := s.UpdateComplaintStatus("GR000001ABCDEF", "Resolved", "Crew dispatched."); err != nil {
		t.Fatalf("UpdateComplaintStatus: %v", err)
	}

	counts, err := s.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts["total"] != 3 {
		t.Errorf("total = %d, want 3", counts["total"])
	}
	if counts["Pending"] != 2 {
		t.Errorf("Pending = %d, want 2", counts["Pending"])
	}
	if counts["Resolved"] != 1 {
		t.Errorf("Resolved = %d, want 1", counts["Resolved"])
	}
}

func TestUpdateComplaintStatusNotFound(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpdateComplaintStatus("GR999999ZZZZZZ", "Resolved", ""); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	s := openTestStore(t)

	c := testComplaint(1)
	if err := s.SaveComplaint(c); err != nil {
		t.Fatalf("SaveComplaint: %v", err)
	}

	a := Attachment{
		ID:          "att-1",
		ComplaintID: c.ID,
		Filename:    "photo-of-leak.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
	}
	if err := s.SaveAttachment(a); err != nil {
		t.Fatalf("SaveAttachment: %v", err)
	}

	got, err := s.GetAttachment("att-1")
	if err != nil {
		t.Fatalf("GetAttachment: %v", err)
	}
	if got.Filename != a.Filename || string(got.Data) != string(a.Data) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := s.SetAttachmentText("att-1", "extracted text"); err != nil {
		t.Fatalf("SetAttachmentText: %v", err)
	}
	list, err := s.ListAttachments(c.ID)
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(list) != 1 || list[0].Text != "extracted text" {
		t.Errorf("ListAttachments = %+v", list)
	}
}

func TestJobClaimLifecycle(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "attachment_extract", PayloadJSON: `{"attachment_id":"att-1"}`}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	j, err := s.ClaimNextJob([]string{"attachment_extract"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if j == nil {
		t.Fatal("expected to claim a job")
	}
	if j.Status != "running" {
		t.Errorf("Status = %q, want running", j.Status)
	}

	// A second claim finds nothing while the first is running.
	j2, err := s.ClaimNextJob([]string{"attachment_extract"})
	if err != nil {
		t.Fatalf("second ClaimNextJob: %v", err)
	}
	if j2 != nil {
		t.Errorf("claimed a running job: %+v", j2)
	}

	if err := s.CompleteJob(j.ID); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
}

func TestFailJobRetriesThenFails(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "attachment_extract", MaxAttempts: 2}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if err := s.FailJob("job-1", "boom"); err != nil {
		t.Fatalf("first FailJob: %v", err)
	}
	var status string
	var attempts int
	if err := s.db.QueryRow(`SELECT status, attempts FROM jobs WHERE id = 'job-1'`).Scan(&status, &attempts); err != nil {
		t.Fatalf("querying job: %v", err)
	}
	if status != "pending" || attempts != 1 {
		t.Errorf("after first failure: status=%q attempts=%d, want pending/1", status, attempts)
	}

	if err := s.FailJob("job-1", "boom again"); err != nil {
		t.Fatalf("second FailJob: %v", err)
	}
	if err := s.db.QueryRow(`SELECT status, attempts FROM jobs WHERE id = 'job-1'`).Scan(&status, &attempts); err != nil {
		t.Fatalf("querying job: %v", err)
	}
	if status != "failed" || attempts != 2 {
		t.Errorf("after second failure: status=%q attempts=%d, want failed/2", status, attempts)
	}
}

func TestNewTrackingIDShape(t *testing.T) {
	pattern := regexp.MustCompile(`^GR[0-9]{6}[A-Z]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := NewTrackingID()
		if err != nil {
			t.Fatalf("NewTrackingID: %v", err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("tracking ID %q does not match expected shape", id)
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d unique IDs out of 50", len(seen))
	}
}
