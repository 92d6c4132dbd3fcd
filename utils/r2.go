// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Letter photos live in a Cloudflare R2 bucket fronted by a CDN. The
// client is built once at boot; stored URLs point at the CDN, never at
// the bucket endpoint.
var (
	letterStore   *s3.Client
	letterBucket  string
	letterCDNBase string
)

// InitLetterStore wires the R2 client for letter-photo storage.
func InitLetterStore() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	letterBucket = os.Getenv("R2_BUCKET_NAME")
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	letterCDNBase = os.Getenv("CDN_BASE_URL")
	if letterCDNBase == "" {
		letterCDNBase = endpoint
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
	)
	if err != nil {
		return fmt.Errorf("failed to load letter store config: %w", err)
	}

	letterStore = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return nil
}

// UploadLetterPhoto streams a letter photo to R2 and returns its public
// URL. key is the object key (e.g. "letters/<match>/<uuid>"). The image
// content is never inspected here — the proof workflow only cares that a
// photo exists.
func UploadLetterPhoto(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open letter photo: %w", err)
	}
	defer file.Close()

	_, err = letterStore.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(letterBucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(fileHeader.Size),
		ContentType:   aws.String(fileHeader.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store letter photo: %w", err)
	}

	return fmt.Sprintf("%s/%s", letterCDNBase, key), nil
}
