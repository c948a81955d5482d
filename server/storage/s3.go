package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cyclopcam/logs"
)

// S3Config covers AWS S3 as well as compatible stores (MinIO, R2) via
// BaseEndpoint. Leave AccessKeyID empty to use the ambient credential
// chain instead of static credentials.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	BaseEndpoint    string `json:"baseEndpoint"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// StorageS3 is an S3-compatible blob store
type StorageS3 struct {
	client *s3.Client
	bucket string
	log    logs.Log
}

func NewStorageS3(log logs.Log, cfg *S3Config) (*StorageS3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
	})
	return &StorageS3{
		client: client,
		bucket: cfg.Bucket,
		log:    log,
	}, nil
}

// s3Writer buffers the object in memory and uploads it on Close. Our
// uploads are capped at a few MB, so buffering is fine, and it keeps the
// WriteCloser contract without a pipe and a goroutine.
type s3Writer struct {
	storage *StorageS3
	name    string
	buf     bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.storage.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(w.storage.bucket),
		Key:    aws.String(w.name),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return err
}

func (s *StorageS3) WriteFile(name string) (io.WriteCloser, error) {
	return &s3Writer{storage: s, name: name}, nil
}

func (s *StorageS3) ReadFile(name string) (*File, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, err
	}
	modified := time.Time{}
	if out.LastModified != nil {
		modified = *out.LastModified
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return &File{
		Reader:     out.Body,
		ModifiedAt: modified,
		Size:       size,
	}, nil
}

func (s *StorageS3) DeleteFile(name string) error {
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	return err
}
