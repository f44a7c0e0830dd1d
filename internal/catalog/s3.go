package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter — часть API S3, необходимая для чтения каталога.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source читает каталог из объекта в бакете S3.
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3Source создаёт источник каталога для объекта bucket/key.
func NewS3Source(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// NewS3SourceFromConfig создаёт источник каталога с клиентом S3 из конфигурации AWS.
func NewS3SourceFromConfig(cfg aws.Config, bucket, key string) *S3Source {
	return NewS3Source(s3.NewFromConfig(cfg), bucket, key)
}

// Read загружает объект каталога.
func (s *S3Source) Read(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get catalog object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog object: %w", err)
	}
	return data, nil
}

func (s *S3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
