package records

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caresync/caresync/internal/platform/blobstore"
)

// RelationshipChecker answers whether a doctor currently has an
// appointment relationship with a patient. Implemented by the booking
// service.
type RelationshipChecker interface {
	HasRelationship(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}

type Service struct {
	repo          Repository
	blobs         blobstore.Store
	relationships RelationshipChecker
}

func NewService(repo Repository, blobs blobstore.Store, relationships RelationshipChecker) *Service {
	return &Service{repo: repo, blobs: blobs, relationships: relationships}
}

// Upload stores the file bytes and the metadata row. The blob is written
// first so the metadata never points at missing bytes; a failed metadata
// insert removes the orphaned blob.
func (s *Service) Upload(ctx context.Context, rec *Record, content io.Reader) (*Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.ID = uuid.New()

	size, hash, err := s.blobs.Put(ctx, rec.ID, content)
	if err != nil {
		return nil, err
	}
	rec.SizeBytes = size
	rec.Hash = hash

	if err := s.repo.Create(ctx, rec); err != nil {
		if derr := s.blobs.Delete(ctx, rec.ID); derr != nil {
			log.Error().Err(derr).Str("record_id", rec.ID.String()).Msg("remove orphaned blob")
		}
		return nil, err
	}
	return rec, nil
}

// List returns a patient's records. Patients see their own; doctors see
// a patient's records only while a non-cancelled appointment links them.
func (s *Service) List(ctx context.Context, requesterID, patientID uuid.UUID, category string, limit, offset int) ([]*Record, int, error) {
	if err := s.authorize(ctx, requesterID, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, category, limit, offset)
}

// Download returns the metadata and a reader over the file bytes.
func (s *Service) Download(ctx context.Context, requesterID, id uuid.UUID) (*Record, io.ReadCloser, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(ctx, requesterID, rec.PatientID); err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return rec, rc, nil
}

// Delete removes a record. Only the owning patient may delete.
func (s *Service) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.PatientID != requesterID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("record_id", id.String()).Msg("delete blob")
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, requesterID, patientID uuid.UUID) error {
	if requesterID == patientID {
		return nil
	}
	if s.relationships == nil {
		return ErrForbidden
	}
	ok, err := s.relationships.HasRelationship(ctx, requesterID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
