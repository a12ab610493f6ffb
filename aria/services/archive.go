// services/archive.go
package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveService mirrors the local audio cache into an S3-compatible
// Spaces bucket so downloaded tracks survive host rebuilds.
type ArchiveService struct {
	client    *s3.Client
	bucket    string
	region    string
	AudioRoot string
}

func NewArchiveService(spacesKey, spacesSecret, region, bucket, audioRoot string) *ArchiveService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	client := s3.NewFromConfig(cfg)

	return &ArchiveService{
		client:    client,
		bucket:    bucket,
		region:    region,
		AudioRoot: strings.TrimPrefix(audioRoot, "/"),
	}
}

// Store uploads the cached audio file at localPath under key.
func (s *ArchiveService) Store(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	objectKey := s.objectKey(key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

// Fetch downloads the archived object for key into localPath. The file
// is written through a temp file so a failed download never leaves a
// truncated entry in the cache.
func (s *ArchiveService) Fetch(ctx context.Context, key, localPath string) error {
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", objectKey, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(path.Dir(localPath), ".archive-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), localPath)
}

// Delete removes an archived track, e.g. when the cache is pruned.
func (s *ArchiveService) Delete(ctx context.Context, key string) error {
	objectKey := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectKey, err)
	}
	return nil
}

func (s *ArchiveService) objectKey(key string) string {
	if s.AudioRoot == "" {
		return key
	}
	return s.AudioRoot + "/" + key
}

func (s *ArchiveService) GetBucket() string {
	return s.bucket
}

func (s *ArchiveService) GetRegion() string {
	return s.region
}
