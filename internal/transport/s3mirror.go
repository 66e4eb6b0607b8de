package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kenneth/cyphertite-go/internal/config"
	"github.com/kenneth/cyphertite-go/internal/ctxerr"
	ctprovider "github.com/kenneth/cyphertite-go/internal/s3"
)

// S3Mirror caches fetched ctfile bodies in an S3 bucket, adapted from the
// teacher's s3Client (internal/s3/client.go): same PutObject/GetObject
// shape, generalized from arbitrary encrypted objects to ctfile catalog
// bodies, and used to satisfy cull.Fetcher without re-downloading a ctfile
// from the primary server on every cull cycle.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Mirror constructs a mirror from cfg. It is only functional when
// cfg.Enabled; callers should skip wiring it as a cull.Fetcher otherwise.
//
// When cfg.Provider names a non-AWS S3-compatible backend (minio, wasabi,
// backblaze, ...), the endpoint and region are resolved against
// internal/s3.KnownProviders and the client is pointed at that endpoint
// with path-style addressing where the provider requires it, the same
// override the teacher's s3Client applied for non-AWS backends.
func NewS3Mirror(ctx context.Context, cfg config.S3CacheConfig) (*S3Mirror, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "aws"
	}

	endpoint, region, err := ctprovider.ValidateProviderConfig(cfg.Endpoint, provider, cfg.Region)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindIO, "transport.NewS3Mirror", err)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindIO, "transport.NewS3Mirror", err)
	}

	var s3Opts []func(*s3.Options)
	if provider != "aws" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
		if ctprovider.RequiresPathStyleAddressing(provider) {
			s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
		}
	}

	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (m *S3Mirror) key(name string) string {
	return m.prefix + name
}

// FetchCtfile implements cull.Fetcher by reading the ctfile from the mirror
// bucket. A miss is returned as an error; there is no fallback to the
// primary server, and cull.Engine aborts the cycle on it.
func (m *S3Mirror) FetchCtfile(name string) ([]byte, error) {
	out, err := m.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(name)),
	})
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindIO, "transport.S3Mirror.FetchCtfile", err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, ctxerr.New(ctxerr.KindIO, "transport.S3Mirror.FetchCtfile", err)
	}
	return body, nil
}

// Store writes a freshly-fetched ctfile body into the mirror so the next
// cull cycle can skip the primary server for it.
func (m *S3Mirror) Store(ctx context.Context, name string, body []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(name)),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return ctxerr.New(ctxerr.KindIO, "transport.S3Mirror.Store", fmt.Errorf("put %s/%s: %w", m.bucket, name, err))
	}
	return nil
}
