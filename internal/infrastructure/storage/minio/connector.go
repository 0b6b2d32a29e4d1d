// Package minio probes S3-compatible object stores with minio-go.
package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

const probeObjectPrefix = ".connprobe/"

// MinIOAPI is the subset of *minio.Client a probe needs.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// newClient is a variable to allow mocking in tests.
var newClient = func(endpoint string, opts *minio.Options) (MinIOAPI, error) {
	return minio.New(endpoint, opts)
}

// Connector probes one object store. Username and Password carry the access
// key and secret.
//
// Options: region, buckets (comma-separated, must exist), probe_bucket
// (receives a short-lived probe object; defaults to the first bucket).
type Connector struct {
	connector.Base
	buckets     []string
	probeBucket string
}

// New validates spec and returns a Connector.
func New(spec connector.Spec) (*Connector, error) {
	if strings.TrimSpace(spec.Endpoint) == "" {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "minio endpoint is required").WithDetail(spec.Name)
	}
	if strings.Contains(spec.Endpoint, "://") {
		return nil, errors.New(errors.ErrCodeConnectorMisconf, "minio endpoint must be host:port without a scheme").WithDetail(spec.Endpoint)
	}
	c := &Connector{Base: connector.Base{Spec: spec}, buckets: spec.OptionList("buckets")}
	c.probeBucket = spec.Option("probe_bucket", "")
	if c.probeBucket == "" && len(c.buckets) > 0 {
		c.probeBucket = c.buckets[0]
	}
	return c, nil
}

func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	client, err := newClient(c.Spec.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Spec.Username, c.Spec.Password, ""),
		Secure: c.Spec.TLS,
		Region: c.Spec.Option("region", "us-east-1"),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSessionOpenFailed, "failed to create minio client")
	}
	return &session{
		client:      client,
		buckets:     c.buckets,
		probeBucket: c.probeBucket,
		objectName:  probeObjectPrefix + connector.NormalizeName(c.Spec.Name),
	}, nil
}

type session struct {
	client      MinIOAPI
	buckets     []string
	probeBucket string
	objectName  string
}

func (s *session) Connectivity(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		if isAccessDenied(err) {
			return errors.Wrap(err, errors.ErrCodeProbeAuthFailed, "minio rejected the credentials")
		}
		return errors.Wrap(err, errors.ErrCodeProbeUnreachable, "minio ListBuckets failed")
	}
	return nil
}

// Primary checks every configured bucket exists.
func (s *session) Primary(ctx context.Context) error {
	var missing []string
	for _, b := range s.buckets {
		ok, err := s.client.BucketExists(ctx, b)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "BucketExists failed").WithDetail(b)
		}
		if !ok {
			missing = append(missing, b)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ErrCodeProbeBadResponse, "buckets missing").WithDetail(strings.Join(missing, ","))
	}
	return nil
}

// Secondary writes and removes a small object. Without a probe bucket there
// is nothing to write to and the phase passes.
func (s *session) Secondary(ctx context.Context) error {
	if s.probeBucket == "" {
		return nil
	}
	body := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	_, err := s.client.PutObject(ctx, s.probeBucket, s.objectName, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		if isAccessDenied(err) {
			return errors.Degraded("bucket is read-only for these credentials").WithCause(err).WithDetail(s.probeBucket)
		}
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "probe object upload failed").WithDetail(s.probeBucket)
	}
	if err := s.client.RemoveObject(ctx, s.probeBucket, s.objectName, minio.RemoveObjectOptions{}); err != nil {
		return errors.Degraded("probe object not removed").WithCause(err).WithDetail(s.probeBucket + "/" + s.objectName)
	}
	return nil
}

// Close is a no-op; minio-go holds no connection state beyond its transport.
func (s *session) Close() error { return nil }

func isAccessDenied(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "AccessDenied" || code == "InvalidAccessKeyId" || code == "SignatureDoesNotMatch"
}

//Personal.AI order the ending
