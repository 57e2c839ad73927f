package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough settings are present to upload.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// R2Uploader stores leaderboard cover images in Cloudflare R2.
type R2Uploader struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Uploader(ctx context.Context, cfg R2Config) (*R2Uploader, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	cdn := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdn == "" {
		cdn = endpoint + "/" + cfg.Bucket
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Uploader{client: client, bucket: cfg.Bucket, cdnBaseURL: cdn}, nil
}

// CoverKey builds the object key for a leaderboard cover, e.g. "leaderboards/covers/friday-crew-1a2b3c4d.png".
func CoverKey(name, filename string) string {
	base := slug.Make(name)
	if base == "" {
		base = "leaderboard"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("leaderboards/covers/%s-%s%s", base, uuid.NewString()[:8], ext)
}

// UploadCover uploads a multipart image and returns its public URL.
func (u *R2Uploader) UploadCover(ctx context.Context, name string, fileHeader *multipart.FileHeader) (string, error) {
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("cover must be an image, got %q", contentType)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	key := CoverKey(name, fileHeader.Filename)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(fileHeader.Size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", u.cdnBaseURL, key), nil
}
