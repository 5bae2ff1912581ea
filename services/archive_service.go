package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"

	appConfig "github.com/aroussel/garage-api/config"
)

// ArchiveInterface stores rendered quote and invoice documents and hands
// out time-limited download links
type ArchiveInterface interface {
	Store(key string, content []byte, contentType string) error
	GetPresignedURL(key string) (string, error)
	Delete(key string) error
}

// ArchiveService implements ArchiveInterface on top of AWS S3
type ArchiveService struct {
	client *s3.Client
	bucket string
}

var archiveServiceInstance ArchiveInterface

// InitArchiveService initializes the document archive with AWS credentials
func InitArchiveService() (ArchiveInterface, error) {
	cfg := appConfig.GetConfig()

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
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

	client := s3.NewFromConfig(awsConfig)

	archiveServiceInstance = &ArchiveService{
		client: client,
		bucket: cfg.AWSS3Bucket,
	}
	return archiveServiceInstance, nil
}

// GetArchiveService returns the initialized archive service instance
func GetArchiveService() ArchiveInterface {
	return archiveServiceInstance
}

// SetArchiveService sets the archive service instance (primarily for testing)
func SetArchiveService(service ArchiveInterface) {
	archiveServiceInstance = service
}

// Store uploads a rendered document to S3 under the given key
func (s *ArchiveService) Store(key string, content []byte, contentType string) error {
	_, err := s.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload document to S3: %w", err)
	}
	return nil
}

// GetPresignedURL generates a presigned URL for downloading an archived
// document. The URL expires after 1 hour.
func (s *ArchiveService) GetPresignedURL(key string) (string, error) {
	if key == "" {
		return "", nil
	}

	presignClient := s3.NewPresignClient(s.client)
	request, err := presignClient.PresignGetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Hour
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	log.WithField("key", key).Debug("generated presigned document URL")
	return request.URL, nil
}

// Delete removes a document from the archive
func (s *ArchiveService) Delete(key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document from S3: %w", err)
	}
	return nil
}
