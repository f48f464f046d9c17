package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/media"
)

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleteAPI interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements media.Store backed by an S3-compatible service.
type S3Storage struct {
	uploader uploadAPI
	deleter  deleteAPI
	bucket   string
	baseURL  string
}

// NewS3Storage configures an uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	partSize := cfg.PartSizeMB * 1024 * 1024
	if partSize < manager.MinUploadPartSize {
		partSize = manager.MinUploadPartSize
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.LeavePartsOnError = false
	})

	return newS3Storage(uploader, client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newS3Storage(uploader uploadAPI, deleter deleteAPI, bucket, baseURL string) *S3Storage {
	return &S3Storage{
		uploader: uploader,
		deleter:  deleter,
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload stores the local file under a fresh key in the kind's prefix and
// returns its public location.
func (s *S3Storage) Upload(ctx context.Context, kind media.Kind, file media.File) (media.Asset, error) {
	if file.IsZero() {
		return media.Asset{}, errors.New("s3 storage: no file supplied")
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return media.Asset{}, fmt.Errorf("s3 storage open %s: %w", file.Path, err)
	}
	defer f.Close()

	key := path.Join(prefix(kind), uuid.NewString()+file.Ext())
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return media.Asset{}, fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	if s.baseURL == "" {
		return media.Asset{URL: key}, nil
	}
	return media.Asset{URL: fmt.Sprintf("%s/%s", s.baseURL, key)}, nil
}

// Delete removes the object a previous Upload returned.
func (s *S3Storage) Delete(ctx context.Context, kind media.Kind, reference string) error {
	key, err := s.keyFor(reference)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(key, prefix(kind)+"/") {
		return fmt.Errorf("s3 storage: %q is not a %s reference", reference, kind)
	}

	if _, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) keyFor(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", errors.New("s3 storage: empty reference")
	}

	if s.baseURL != "" && strings.HasPrefix(reference, s.baseURL+"/") {
		return strings.TrimPrefix(reference, s.baseURL+"/"), nil
	}

	if u, err := url.Parse(reference); err == nil && u.Scheme != "" {
		return strings.TrimLeft(u.Path, "/"), nil
	}
	return strings.TrimLeft(reference, "/"), nil
}

func prefix(kind media.Kind) string {
	switch kind {
	case media.KindVideo:
		return "videos"
	default:
		return "images"
	}
}

var _ media.Store = (*S3Storage)(nil)
