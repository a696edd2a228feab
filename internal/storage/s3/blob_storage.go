package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignatzorin/gallery-backend/internal/config"
	"github.com/ignatzorin/gallery-backend/internal/logger"
)

// BlobStorage хранит байты изображений в S3-совместимом объектном хранилище.
// Один объект на запись, без версионирования.
type BlobStorage struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// New создаёт клиент объектного хранилища и проверяет наличие bucket.
func New(ctx context.Context, cfg config.S3Config) (*BlobStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: не удалось загрузить AWS конфигурацию: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// Path-style для совместимости с MinIO и другими S3-совместимыми сервисами
		o.UsePathStyle = true
	})

	storage := &BlobStorage{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
	}

	if err := storage.ensureBucketExists(ctx); err != nil {
		logger.WithComponent("s3").Warnf("не удалось проверить bucket %s: %v", cfg.Bucket, err)
	}

	return storage, nil
}

// ensureBucketExists создаёт bucket, если его ещё нет.
func (s *BlobStorage) ensureBucketExists(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err == nil {
		return nil
	}

	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return err
	}

	logger.WithComponent("s3").Infof("bucket %s создан", s.bucket)
	return nil
}

// Put загружает объект и возвращает постоянный URL для последующего
// отображения.
func (s *BlobStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("s3: не удалось загрузить объект %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key), nil
}

// Delete удаляет объект. Отсутствующий объект ошибкой не считается.
func (s *BlobStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3: не удалось удалить объект %s: %w", key, err)
	}
	return nil
}
