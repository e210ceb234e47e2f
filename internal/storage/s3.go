package storage

import (
	"context"
	"fmt"
	"strings"

	"garagepro/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
)

// putObjectAPI is the part of the S3 client used by InvoiceArchive.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// InvoiceArchive copies rendered invoices to an S3-compatible bucket.
type InvoiceArchive struct {
	client putObjectAPI
	bucket string
}

// NewS3Client builds a path-style S3 client for any S3-compatible endpoint
// (R2, MinIO, Supabase storage).
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load S3 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3URL != "" {
			o.BaseEndpoint = aws.String(cfg.S3URL)
		}
		o.UsePathStyle = true
	}), nil
}

func NewInvoiceArchive(client putObjectAPI, bucket string) *InvoiceArchive {
	return &InvoiceArchive{client: client, bucket: bucket}
}

// InvoiceKey is the object key an invoice is archived under.
func InvoiceKey(userID, invoiceNumber string) string {
	return fmt.Sprintf("invoices/%s/%s.html", userID, invoiceNumber)
}

// PutInvoice uploads the HTML body and returns the object key.
func (a *InvoiceArchive) PutInvoice(ctx context.Context, userID, invoiceNumber, html string) (string, error) {
	key := InvoiceKey(userID, invoiceNumber)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(key),
		Body:         strings.NewReader(html),
		ContentType:  aws.String("text/html; charset=utf-8"),
		CacheControl: aws.String("private, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put invoice %s to bucket %s: %w", key, a.bucket, err)
	}
	return key, nil
}

// removeDisableGzip works around signature errors on some S3-compatible
// services. See https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
