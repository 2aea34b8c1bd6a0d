package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// S3Config holds configuration for report uploads.
type S3Config struct {
	Bucket    string // S3 bucket name
	Prefix    string // Key prefix, e.g. reports/daily
	Region    string // AWS region (default: us-east-1)
	Endpoint  string // Custom endpoint for S3-compatible storage (MinIO, etc.)
	AccessKey string // optional, default credential chain when empty
	SecretKey string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads written reports under <prefix>/<YYYY>/<MM>/<DD>/.
type S3Publisher struct {
	tracer trace.Tracer
	client putObjectAPI
	config S3Config
}

func NewS3Publisher(ctx context.Context, tracer trace.Tracer, cfg S3Config) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Publisher{
		tracer: tracer,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
	}, nil
}

// Key returns the object key for a report file written on day.
func (p *S3Publisher) Key(filename string, day time.Time) string {
	key := day.UTC().Format("2006/01/02") + "/" + filename
	if prefix := strings.Trim(p.config.Prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

// Publish uploads the local report and returns its s3:// URL.
func (p *S3Publisher) Publish(ctx context.Context, localPath string, createdAt time.Time) (string, error) {
	ctx, span := p.tracer.Start(ctx, "report.s3-publish")
	defer span.End()

	url, err := p.publish(ctx, localPath, createdAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("url", url))
	return url, nil
}

func (p *S3Publisher) publish(ctx context.Context, localPath string, createdAt time.Time) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}

	key := p.Key(filepath.Base(localPath), createdAt)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(p.config.Bucket),
		Key:                  aws.String(key),
		Body:                 f,
		ContentLength:        aws.Int64(info.Size()),
		ContentType:          aws.String("text/csv; charset=utf-8"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"source":      "crypto-sentinel",
			"uploaded_at": time.Now().UTC().Format(time.RFC3339),
			"file_size":   strconv.FormatInt(info.Size(), 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return "s3://" + p.config.Bucket + "/" + key, nil
}
