package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/configuration"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

type S3Store struct {
	bucket     string
	publicBase string
	ttl        time.Duration
	s3         *s3.Client
	presign    *s3.PresignClient
	log        *zap.Logger
}

func NewS3Store(ctx context.Context, cfg configuration.StorageConfig, log *zap.Logger) (*S3Store, error) {
	if cfg.Region == "" || cfg.BucketName == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := s3Endpoint(cfg)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &S3Store{
		bucket:     cfg.BucketName,
		publicBase: s3PublicBase(cfg, endpoint),
		ttl:        ttl,
		s3:         client,
		presign:    s3.NewPresignClient(client),
		log:        log.Named("s3"),
	}, nil
}

// s3Endpoint is empty for AWS itself and a full URL for S3-compatible hosts.
func s3Endpoint(cfg configuration.StorageConfig) string {
	e := strings.TrimRight(cfg.Endpoint, "/")
	if e == "" || strings.HasSuffix(e, "amazonaws.com") {
		return ""
	}
	if !strings.Contains(e, "://") {
		if cfg.UseSSL {
			e = "https://" + e
		} else {
			e = "http://" + e
		}
	}
	return e
}

func s3PublicBase(cfg configuration.StorageConfig, endpoint string) string {
	switch {
	case cfg.PublicBase != "":
		return strings.TrimRight(cfg.PublicBase, "/")
	case endpoint != "":
		return endpoint + "/" + cfg.BucketName
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
	}
}

func (s *S3Store) IssueUploadCredential(ctx context.Context, objectPath, contentType string, size int64) (pipeline.Credential, error) {
	if objectPath == "" {
		return pipeline.Credential{}, errors.New("object key is required")
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	presigned, err := s.presign.PresignPutObject(ctx, input, func(po *s3.PresignOptions) {
		po.Expires = s.ttl
	})
	if err != nil {
		return pipeline.Credential{}, err
	}

	headers := map[string]string{}
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 && !strings.EqualFold(k, "host") {
			headers[k] = v[0]
		}
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return pipeline.Credential{URL: presigned.URL, Headers: headers, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

func (s *S3Store) PublicURL(objectPath string) (string, error) {
	if objectPath == "" {
		return "", errors.New("empty object path")
	}
	return s.publicBase + "/" + escapeKey(objectPath), nil
}

func (s *S3Store) PathSegment() string {
	return s.publicBase + "/"
}

func (s *S3Store) RemoveObject(ctx context.Context, objectPath string) error {
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	return err
}

// RemovePrefix deletes every object under prefix, one listing page at a time.
func (s *S3Store) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("refusing to remove an empty prefix")
	}
	removed := 0
	pages := s3.NewListObjectsV2Paginator(s.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return removed, err
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := s.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return removed, err
		}
		for _, e := range out.Errors {
			s.log.Warn("object removal failed",
				zap.String("object", aws.ToString(e.Key)), zap.String("reason", aws.ToString(e.Message)))
		}
		removed += len(ids) - len(out.Errors)
	}
	return removed, nil
}

func (s *S3Store) CheckConnection(ctx context.Context) error {
	_, err := s.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
