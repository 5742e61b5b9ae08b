package store

import (
	"errors"
	"strings"

	"dario.cat/mergo"

	"github.com/simon020286/pipegen/models"
)

const (
	s3ARNPrefix = "arn:aws:s3:::"

	// SSEAlgorithmKMS is the server-side encryption algorithm of encrypted buckets
	SSEAlgorithmKMS = "aws:kms"

	StatusEnabled  = "Enabled"
	StatusDisabled = "Disabled"
)

var (
	ErrReplicationRole        = errors.New("bucket replication requires a role ARN")
	ErrReplicationDestination = errors.New("bucket replication requires a destination bucket")
)

// DefaultTags are applied to every generated bucket; caller tags win
var DefaultTags = map[string]string{
	"10-technical:usage":     "PipelineArtifacts",
	"30-automation:project":  "Pipelines",
	"40-security:compliance": "None",
}

// DefaultLifecycle aborts incomplete multipart uploads after three days
var DefaultLifecycle = LifecycleOptions{AbortIncompleteMultipartDays: 3}

// BucketOptions are the optional features of a generated bucket
type BucketOptions struct {
	// Name is the physical bucket name; nil lets the control plane pick one
	Name        models.Value
	Encryption  bool
	Lifecycle   *LifecycleOptions
	Replication *ReplicationOptions
	Tags        map[string]string
}

// Clone returns a deep copy of o
func (o BucketOptions) Clone() BucketOptions {
	if o.Tags != nil {
		tags := make(map[string]string, len(o.Tags))
		for k, v := range o.Tags {
			tags[k] = v
		}
		o.Tags = tags
	}
	if o.Lifecycle != nil {
		lc := *o.Lifecycle
		o.Lifecycle = &lc
	}
	if o.Replication != nil {
		r := *o.Replication
		o.Replication = &r
	}
	return o
}

type LifecycleOptions struct {
	AbortIncompleteMultipartDays int
}

type ReplicationOptions struct {
	RoleARN           models.Value
	DestinationBucket string
	// ReplicaKMSKeyID encrypts replicas when set
	ReplicaKMSKeyID           models.Value
	ReplicateEncryptedObjects bool
}

// Bucket is the resolved bucket resource
type Bucket struct {
	Name        models.Value
	Tags        map[string]string
	Encryption  *Encryption
	Lifecycle   *LifecycleRule
	Versioning  bool
	Replication *Replication
}

type Encryption struct {
	SSEAlgorithm string
}

type LifecycleRule struct {
	Status                       string
	AbortIncompleteMultipartDays int
}

type Replication struct {
	Role  models.Value
	Rules []ReplicationRule
}

type ReplicationRule struct {
	Prefix                 string
	Status                 string
	DestinationBucketARN   string
	ReplicaKMSKeyID        models.Value
	SSEKMSEncryptedObjects string
}

// BuildBucket resolves options into a bucket. Versioning is turned on
// whenever lifecycle or replication is.
func BuildBucket(opts BucketOptions) (Bucket, error) {
	b := Bucket{
		Name: opts.Name,
		Tags: make(map[string]string, len(DefaultTags)+len(opts.Tags)),
	}
	for k, v := range opts.Tags {
		b.Tags[k] = v
	}
	if err := mergo.Merge(&b.Tags, DefaultTags); err != nil {
		return Bucket{}, err
	}

	if opts.Encryption {
		b.Encryption = &Encryption{SSEAlgorithm: SSEAlgorithmKMS}
	}

	if opts.Lifecycle != nil {
		lc := *opts.Lifecycle
		if err := mergo.Merge(&lc, DefaultLifecycle); err != nil {
			return Bucket{}, err
		}
		b.Lifecycle = &LifecycleRule{Status: StatusEnabled, AbortIncompleteMultipartDays: lc.AbortIncompleteMultipartDays}
		b.Versioning = true
	}

	if opts.Replication != nil {
		r, err := buildReplication(*opts.Replication)
		if err != nil {
			return Bucket{}, err
		}
		b.Replication = r
		b.Versioning = true
	}

	return b, nil
}

func buildReplication(opts ReplicationOptions) (*Replication, error) {
	if locationEmpty(opts.RoleARN) {
		return nil, ErrReplicationRole
	}
	if opts.DestinationBucket == "" {
		return nil, ErrReplicationDestination
	}

	dest := opts.DestinationBucket
	if !strings.HasPrefix(dest, s3ARNPrefix) {
		dest = s3ARNPrefix + dest
	}

	sse := StatusDisabled
	if opts.ReplicateEncryptedObjects {
		sse = StatusEnabled
	}

	return &Replication{
		Role: opts.RoleARN,
		Rules: []ReplicationRule{{
			Prefix:                 "",
			Status:                 StatusEnabled,
			DestinationBucketARN:   dest,
			ReplicaKMSKeyID:        opts.ReplicaKMSKeyID,
			SSEKMSEncryptedObjects: sse,
		}},
	}, nil
}
