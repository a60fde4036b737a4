package client

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pantrypal/api/internal/config"
)

// ReceiptArchive keeps a copy of uploaded receipt images
type ReceiptArchive interface {
	Archive(ctx context.Context, userID, fileName string, body io.Reader, contentType string) (string, error)
}

// R2Archive stores receipt images in a Cloudflare R2 bucket through the S3 API
type R2Archive struct {
	s3Client   *s3.Client
	presigner  *s3.PresignClient
	bucketName string
	publicURL  string
	now        func() time.Time
}

// NewR2Archive creates an archive client. It fails when credentials are missing,
// in which case callers run without archiving.
func NewR2Archive(cfg *config.R2Config) (*R2Archive, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2Archive{
		s3Client:   s3Client,
		presigner:  s3.NewPresignClient(s3Client),
		bucketName: cfg.BucketName,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		now:        time.Now,
	}, nil
}

// Archive uploads a receipt image and returns its URL
func (a *R2Archive) Archive(ctx context.Context, userID, fileName string, body io.Reader, contentType string) (string, error) {
	key := a.objectKey(userID, fileName)
	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive receipt to R2: %w", err)
	}

	if a.publicURL != "" {
		return a.publicURL + "/" + key, nil
	}
	// Private bucket: hand back a short-lived link instead
	signed, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to presign archived receipt: %w", err)
	}
	return signed.URL, nil
}

// objectKey builds receipts/<user>/<yyyy-mm-dd>/<uuid><ext>
func (a *R2Archive) objectKey(userID, fileName string) string {
	return archiveKey(userID, fileName, a.now())
}

func archiveKey(userID, fileName string, at time.Time) string {
	if userID == "" {
		userID = "anonymous"
	}
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("receipts/%s/%s/%s%s", userID, at.UTC().Format("2006-01-02"), uuid.New().String(), ext)
}
