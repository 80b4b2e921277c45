package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// XLSXContentType is the MIME type served for rendered workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// objectPutter is the slice of the S3 API the service needs
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds export storage configuration
type Config struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
}

// Service renders analytics reports to workbooks and archives them to S3
type Service struct {
	s3Client objectPutter
	bucket   string
	log      logger.Logger
}

// NewService creates an export service. With an empty bucket the service
// renders workbooks but skips archival.
func NewService(cfg Config, log logger.Logger) (*Service, error) {
	svc := &Service{bucket: cfg.S3Bucket, log: log}

	if cfg.S3Bucket == "" {
		return svc, nil
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	svc.s3Client = s3.NewFromConfig(awsCfg)
	return svc, nil
}

// Render produces the workbook bytes for a report
func (s *Service) Render(report *analytics.Report) ([]byte, string, error) {
	f, err := RenderWorkbook(report)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return buf.Bytes(), Filename(report), nil
}

// RenderAndArchive renders the workbook and, when a bucket is configured,
// uploads a copy before returning the bytes for download.
func (s *Service) RenderAndArchive(ctx context.Context, report *analytics.Report) ([]byte, string, error) {
	body, filename, err := s.Render(report)
	if err != nil {
		return nil, "", err
	}

	if s.s3Client != nil {
		key := fmt.Sprintf("exports/%s", filename)
		_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(XLSXContentType),
		})
		if err != nil {
			// The download still succeeds, archival is best effort
			s.log.Warn("failed to archive export", "key", key, "error", err)
		} else {
			s.log.Info("archived export", "bucket", s.bucket, "key", key)
		}
	}

	return body, filename, nil
}
