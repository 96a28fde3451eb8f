package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putter is the slice of the S3 API the store uses
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store stores images in an S3 bucket (or an S3-compatible endpoint such as LocalStack)
type S3Store struct {
	client        putter
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
}

// S3Options configures NewS3Store
type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string // custom endpoint, path-style addressing when set
	PublicBaseURL string // overrides the derived public URL prefix
}

var _ ports.ObjectStorage = (*S3Store)(nil)

// LoadAWSConfig loads the default AWS config, pointing every service at endpoint when it is set.
func LoadAWSConfig(ctx context.Context, region, endpoint string) (aws.Config, error) {
	if endpoint == "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, r string, _ ...any) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               endpoint,
			HostnameImmutable: true,
			PartitionID:       "aws",
		}, nil
	})
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region), awsconfig.WithEndpointResolverWithOptions(resolver))
}

// NewS3Store creates an S3 store from the default credential chain
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := LoadAWSConfig(ctx, opts.Region, opts.Endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.Endpoint != ""
	})
	return newS3Store(client, opts), nil
}

func newS3Store(client putter, opts S3Options) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        opts.Bucket,
		region:        opts.Region,
		endpoint:      opts.Endpoint,
		publicBaseURL: opts.PublicBaseURL,
	}
}

// Upload writes data under path
func (s *S3Store) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return errors.PersistenceError(fmt.Sprintf("failed to upload s3://%s/%s", s.bucket, path), err)
	}
	return nil
}

// PublicURL returns the retrieval URL of path
func (s *S3Store) PublicURL(path string) string {
	escaped := (&url.URL{Path: path}).EscapedPath()
	switch {
	case s.publicBaseURL != "":
		return joinURL(s.publicBaseURL, escaped)
	case s.endpoint != "":
		return joinURL(joinURL(s.endpoint, s.bucket), escaped)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
	}
}
