package records

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/platform/blobstore"
)

type mockRepo struct {
	rows map[uuid.UUID]*Record
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	r.CreatedAt = time.Now()
	m.rows[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, category string, limit, offset int) ([]*Record, int, error) {
	var items []*Record
	for _, r := range m.rows {
		if r.PatientID != patientID {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		items = append(items, r)
	}
	return items, len(items), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type staticRelationships struct {
	linked map[[2]uuid.UUID]bool
}

func (s *staticRelationships) HasRelationship(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return s.linked[[2]uuid.UUID{doctorID, patientID}], nil
}

func link(doctorID, patientID uuid.UUID) *staticRelationships {
	return &staticRelationships{linked: map[[2]uuid.UUID]bool{{doctorID, patientID}: true}}
}

func testRecord(patientID uuid.UUID) *Record {
	return &Record{
		PatientID:   patientID,
		Title:       "CBC panel",
		Category:    CategoryLabReport,
		FileName:    "cbc.pdf",
		ContentType: "application/pdf",
	}
}

func TestUploadAndDownload(t *testing.T) {
	patientID := uuid.New()
	svc := NewService(newMockRepo(), blobstore.NewMemoryStore(), nil)
	ctx := context.Background()

	rec, err := svc.Upload(ctx, testRecord(patientID), strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rec.SizeBytes != int64(len("pdf bytes")) {
		t.Errorf("size not captured: %d", rec.SizeBytes)
	}
	if rec.Hash == "" {
		t.Error("hash not captured")
	}

	got, rc, err := svc.Download(ctx, patientID, rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "pdf bytes" || got.Title != "CBC panel" {
		t.Errorf("round trip mismatch: %q %q", data, got.Title)
	}
}

func TestUploadValidation(t *testing.T) {
	svc := NewService(newMockRepo(), blobstore.NewMemoryStore(), nil)
	ctx := context.Background()
	patientID := uuid.New()

	cases := []struct {
		name string
		mut  func(*Record)
	}{
		{"missing title", func(r *Record) { r.Title = "" }},
		{"bad category", func(r *Record) { r.Category = "selfie" }},
		{"bad content type", func(r *Record) { r.ContentType = "application/x-msdownload" }},
		{"missing patient", func(r *Record) { r.PatientID = uuid.Nil }},
	}
	for _, tc := range cases {
		rec := testRecord(patientID)
		tc.mut(rec)
		if _, err := svc.Upload(ctx, rec, strings.NewReader("x")); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestDoctorAccess(t *testing.T) {
	patientID := uuid.New()
	doctorID := uuid.New()
	svc := NewService(newMockRepo(), blobstore.NewMemoryStore(), link(doctorID, patientID))
	ctx := context.Background()

	rec, err := svc.Upload(ctx, testRecord(patientID), strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	// Linked doctor can list and download.
	items, _, err := svc.List(ctx, doctorID, patientID, "", 20, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("linked doctor list: %v (%d items)", err, len(items))
	}
	if _, rc, err := svc.Download(ctx, doctorID, rec.ID); err != nil {
		t.Errorf("linked doctor download: %v", err)
	} else {
		rc.Close()
	}

	// A stranger cannot.
	if _, _, err := svc.List(ctx, uuid.New(), patientID, "", 20, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for stranger list, got %v", err)
	}
	if _, _, err := svc.Download(ctx, uuid.New(), rec.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for stranger download, got %v", err)
	}

	// Doctors cannot delete, even when linked.
	if err := svc.Delete(ctx, doctorID, rec.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for doctor delete, got %v", err)
	}
}

func TestDeleteRemovesBlob(t *testing.T) {
	patientID := uuid.New()
	blobs := blobstore.NewMemoryStore()
	svc := NewService(newMockRepo(), blobs, nil)
	ctx := context.Background()

	rec, err := svc.Upload(ctx, testRecord(patientID), strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := svc.Delete(ctx, patientID, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := blobs.Get(ctx, rec.ID); !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("blob must be removed with the record, got %v", err)
	}
	if err := svc.Delete(ctx, patientID, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}
