package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/VivreleHpi/crohn-companion-app/internal/config"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Export is a stored report and a time-limited link to it.
type Export struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// ExportService stores weekly reports in S3-compatible storage so they can
// be shared with a clinician.
type ExportService struct {
	config *appconfig.Config
	log    logging.Logger
	now    func() time.Time
}

func NewExportService(cfg *appconfig.Config, log logging.Logger) *ExportService {
	return &ExportService{config: cfg, log: log, now: time.Now}
}

// ReportKey builds the object key for a user's weekly report.
func ReportKey(userID, weekStart string) string {
	return fmt.Sprintf("reports/%s/%s/%v.json", userID, weekStart, uuid.New())
}

func (s *ExportService) client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Upload writes the report as JSON and returns a presigned GET link valid
// for the configured export TTL.
func (s *ExportService) Upload(ctx context.Context, userID string, report *WeeklyReport) (*Export, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	client, err := s.client()
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := ReportKey(userID, report.WeekStart)

	err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.log.Error(ctx, "report upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("upload report: %w", err)
	}

	ttl := s.config.ExportLinkTTL
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("presign report: %w", err)
	}

	s.log.Info(ctx, "report exported", "key", key)
	return &Export{Key: key, URL: req.URL, ExpiresAt: s.now().Add(ttl)}, nil
}
