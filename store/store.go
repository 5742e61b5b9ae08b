// Package store describes where a pipeline keeps its artifacts and, when the
// template owns it, the bucket backing that location.
package store

import (
	"errors"

	"github.com/simon020286/pipegen/models"
)

// DefaultType is the only artifact store type the pipeline service accepts
const DefaultType = "S3"

// BucketLogicalID is the template resource name of a generated artifact bucket
const BucketLogicalID = "ArtifactBucket"

// ErrLocationRequired is returned when an artifact store has no location
var ErrLocationRequired = errors.New("artifact store location is required")

// ArtifactStore is the pipeline-level artifact store
type ArtifactStore struct {
	Type     string
	Location models.Value
	// Bucket is set when the template should create the bucket itself
	Bucket *BucketOptions
}

// WithDefaults fills an empty Type and, when a bucket is requested without an
// explicit location, points the location at the generated bucket.
func (s ArtifactStore) WithDefaults() ArtifactStore {
	if s.Type == "" {
		s.Type = DefaultType
	}
	if s.Bucket != nil && locationEmpty(s.Location) {
		s.Location = models.Ref{Name: BucketLogicalID}
	}
	return s
}

// Clone returns a copy of s that shares no memory with it
func (s ArtifactStore) Clone() ArtifactStore {
	if s.Bucket != nil {
		b := s.Bucket.Clone()
		s.Bucket = &b
	}
	return s
}

// Validate checks that the store has a location
func (s ArtifactStore) Validate() error {
	if locationEmpty(s.Location) {
		return ErrLocationRequired
	}
	return nil
}

func locationEmpty(v models.Value) bool {
	if v == nil {
		return true
	}
	if s, ok := models.LiteralString(v); ok {
		return s == ""
	}
	return false
}
