package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/simon020286/pipegen/models"
)

func TestBuildBucket_Plain(t *testing.T) {
	b, err := BuildBucket(BucketOptions{Name: models.String("artifacts")})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if b.Encryption != nil || b.Lifecycle != nil || b.Replication != nil {
		t.Errorf("Expected no optional features, got %+v", b)
	}
	if b.Versioning {
		t.Error("Expected versioning off")
	}
	if diff := cmp.Diff(DefaultTags, b.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBucket_CallerTagsWin(t *testing.T) {
	b, err := BuildBucket(BucketOptions{Tags: map[string]string{
		"40-security:compliance": "PCI",
		"team":                   "platform",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if b.Tags["40-security:compliance"] != "PCI" {
		t.Errorf("Expected caller tag to win, got '%s'", b.Tags["40-security:compliance"])
	}
	if b.Tags["team"] != "platform" || b.Tags["10-technical:usage"] != "PipelineArtifacts" {
		t.Errorf("Expected merged tags, got %v", b.Tags)
	}
	if DefaultTags["40-security:compliance"] != "None" {
		t.Error("Expected DefaultTags to be untouched")
	}
}

func TestBuildBucket_EncryptionAndLifecycle(t *testing.T) {
	b, err := BuildBucket(BucketOptions{Encryption: true, Lifecycle: &LifecycleOptions{}})
	if err != nil {
		t.Fatal(err)
	}
	if b.Encryption == nil || b.Encryption.SSEAlgorithm != "aws:kms" {
		t.Errorf("Expected aws:kms encryption, got %+v", b.Encryption)
	}
	if b.Lifecycle == nil || b.Lifecycle.AbortIncompleteMultipartDays != 3 {
		t.Errorf("Expected default 3 day abort, got %+v", b.Lifecycle)
	}
	if !b.Versioning {
		t.Error("Expected lifecycle to enable versioning")
	}

	b, _ = BuildBucket(BucketOptions{Lifecycle: &LifecycleOptions{AbortIncompleteMultipartDays: 7}})
	if b.Lifecycle.AbortIncompleteMultipartDays != 7 {
		t.Errorf("Expected 7 days, got %d", b.Lifecycle.AbortIncompleteMultipartDays)
	}
}

func TestBuildBucket_Replication(t *testing.T) {
	tests := []struct {
		name    string
		opts    ReplicationOptions
		wantARN string
		wantSSE string
		wantErr error
	}{
		{
			name:    "bare bucket name",
			opts:    ReplicationOptions{RoleARN: models.String("arn:aws:iam:::role/replication"), DestinationBucket: "replica"},
			wantARN: "arn:aws:s3:::replica",
			wantSSE: "Disabled",
		},
		{
			name: "full arn and encrypted objects",
			opts: ReplicationOptions{
				RoleARN:                   models.Ref{Name: "ReplicationRole"},
				DestinationBucket:         "arn:aws:s3:::replica",
				ReplicaKMSKeyID:           models.Sub{Template: "${KeyId}"},
				ReplicateEncryptedObjects: true,
			},
			wantARN: "arn:aws:s3:::replica",
			wantSSE: "Enabled",
		},
		{
			name:    "missing role",
			opts:    ReplicationOptions{DestinationBucket: "replica"},
			wantErr: ErrReplicationRole,
		},
		{
			name:    "missing destination",
			opts:    ReplicationOptions{RoleARN: models.String("arn:aws:iam:::role/r")},
			wantErr: ErrReplicationDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			b, err := BuildBucket(BucketOptions{Replication: &opts})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !b.Versioning {
				t.Error("Expected replication to enable versioning")
			}
			rule := b.Replication.Rules[0]
			if rule.DestinationBucketARN != tt.wantARN {
				t.Errorf("Expected destination '%s', got '%s'", tt.wantARN, rule.DestinationBucketARN)
			}
			if rule.SSEKMSEncryptedObjects != tt.wantSSE {
				t.Errorf("Expected SSE status '%s', got '%s'", tt.wantSSE, rule.SSEKMSEncryptedObjects)
			}
		})
	}
}

func TestArtifactStore_Defaults(t *testing.T) {
	s := ArtifactStore{Bucket: &BucketOptions{}}.WithDefaults()
	if s.Type != "S3" {
		t.Errorf("Expected type S3, got '%s'", s.Type)
	}
	if s.Location != (models.Ref{Name: "ArtifactBucket"}) {
		t.Errorf("Expected location Ref ArtifactBucket, got %#v", s.Location)
	}

	s = ArtifactStore{Location: models.String("existing")}.WithDefaults()
	if got, _ := models.LiteralString(s.Location); got != "existing" {
		t.Errorf("Expected explicit location kept, got %#v", s.Location)
	}
}

func TestArtifactStore_Validate(t *testing.T) {
	tests := []struct {
		name  string
		store ArtifactStore
		ok    bool
	}{
		{"nil location", ArtifactStore{}, false},
		{"empty literal", ArtifactStore{Location: models.String("")}, false},
		{"literal", ArtifactStore{Location: models.String("bucket")}, true},
		{"deferred", ArtifactStore{Location: models.ImportValue{Name: "shared-artifacts"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.store.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrLocationRequired) {
				t.Errorf("Expected ErrLocationRequired, got %v", err)
			}
		})
	}
}

func TestArtifactStore_CloneSharesNothing(t *testing.T) {
	opts := &BucketOptions{
		Tags:        map[string]string{"team": "platform"},
		Lifecycle:   &LifecycleOptions{AbortIncompleteMultipartDays: 5},
		Replication: &ReplicationOptions{RoleARN: models.String("arn:aws:iam::1:role/r"), DestinationBucket: "replica"},
	}
	orig := ArtifactStore{Location: models.String("artifacts"), Bucket: opts}
	clone := orig.Clone()

	opts.Encryption = true
	opts.Tags["team"] = "mutated"
	opts.Lifecycle.AbortIncompleteMultipartDays = 9
	opts.Replication.DestinationBucket = "mutated"

	b := clone.Bucket
	if b == opts {
		t.Fatal("Expected clone to hold its own bucket options")
	}
	if b.Encryption || b.Tags["team"] != "platform" {
		t.Errorf("Expected clone to be unaffected, got encryption=%v tags=%v", b.Encryption, b.Tags)
	}
	if b.Lifecycle.AbortIncompleteMultipartDays != 5 {
		t.Errorf("Expected lifecycle 5, got %d", b.Lifecycle.AbortIncompleteMultipartDays)
	}
	if b.Replication.DestinationBucket != "replica" {
		t.Errorf("Expected replica destination, got '%s'", b.Replication.DestinationBucket)
	}
}

func TestArtifactStore_CloneWithoutBucket(t *testing.T) {
	clone := ArtifactStore{Location: models.String("artifacts")}.Clone()
	if clone.Bucket != nil {
		t.Errorf("Expected nil bucket, got %+v", clone.Bucket)
	}
}
