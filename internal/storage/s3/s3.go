// Package s3 keeps summary files in an S3 compatible bucket (AWS, MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config holds the bucket connection settings.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base objects are served from; defaults to Endpoint.
	PublicURL string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error)
}

// Store implements gateway.Objects on one bucket.
type Store struct {
	api        objectAPI
	bucket     string
	publicBase string
}

var _ gateway.Objects = (*Store)(nil)

// New builds an S3 client with static credentials and a custom endpoint.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	public := cfg.PublicURL
	if public == "" {
		public = cfg.Endpoint
	}
	return newStore(client, cfg.Bucket, public), nil
}

func newStore(api objectAPI, bucket, publicBase string) *Store {
	return &Store{api: api, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

// Upload puts the object. Request signing needs a seekable body, so plain
// readers are buffered first.
func (s *Store) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		rs = bytes.NewReader(b)
	}
	_, err := s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(path),
		Body:         rs,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
		IfNoneMatch:  aws.String("*"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", path, err)
	}
	return path, nil
}

// PublicURL returns <public base>/<bucket>/<path>.
func (s *Store) PublicURL(path string) string {
	return s.publicBase + "/" + s.bucket + "/" + path
}

// PathFromURL reverses PublicURL.
func (s *Store) PathFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	base, err := url.Parse(s.publicBase)
	if err != nil || u.Host != base.Host {
		return "", false
	}
	prefix := strings.TrimRight(base.Path, "/") + "/" + s.bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	p := strings.TrimPrefix(u.Path, prefix)
	return p, p != ""
}

// Remove deletes the objects in one batch call.
func (s *Store) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(p)})
	}
	out, err := s.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("s3: delete: %w", err)
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("s3: delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return nil
}
