// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"futeba-gamification-system/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DeadLetterArchiver exports resolved dead letters to R2 as JSON, keeping the
// database queue small while preserving the full failure history.
type DeadLetterArchiver struct {
	client *s3.Client
	bucket string
}

// NewDeadLetterArchiver builds the archiver from env config. Returns nil when
// R2 is not configured; archiving is optional.
func NewDeadLetterArchiver() (*DeadLetterArchiver, error) {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	bucket := os.Getenv("R2_BUCKET_NAME")

	if accountID == "" || accessKeyID == "" || bucket == "" {
		return nil, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	return &DeadLetterArchiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// Archive uploads one dead letter entry as JSON under
// dead-letters/{yyyy-mm}/{id}.json.
func (a *DeadLetterArchiver) Archive(ctx context.Context, entry *models.DeadLetterEntry) error {
	payload, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter %s: %w", entry.ID, err)
	}

	key := fmt.Sprintf("dead-letters/%s/%s.json", entry.CreatedAt.Format("2006-01"), entry.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload dead letter to R2: %w", err)
	}
	return nil
}

// ArchiveBatch uploads a daily export of many entries in one object.
func (a *DeadLetterArchiver) ArchiveBatch(ctx context.Context, entries []models.DeadLetterEntry) error {
	if len(entries) == 0 {
		return nil
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter batch: %w", err)
	}

	key := fmt.Sprintf("dead-letters/exports/%s.json", time.Now().Format("2006-01-02T15-04-05"))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload dead letter export to R2: %w", err)
	}
	return nil
}
