package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"brandgen/internal/ports"
)

// ObjectAPI is the subset of *s3.Client the provider uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient the provider uses.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Client implements ports.StorageProvider on an S3 bucket. PutObject on an
// existing key replaces the object, as S3 does natively.
type Client struct {
	api       ObjectAPI
	presigner Presigner
	bucket    string
	prefix    string
}

// NewFromConfig builds a provider from an AWS config.
func NewFromConfig(cfg aws.Config, bucket, prefix string) *Client {
	api := awss3.NewFromConfig(cfg)
	return New(api, awss3.NewPresignClient(api), bucket, prefix)
}

func New(api ObjectAPI, presigner Presigner, bucket, prefix string) *Client {
	return &Client{
		api:       api,
		presigner: presigner,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
	}
}

func (c *Client) Provider() string { return "s3" }

func (c *Client) key(objectKey string) string {
	if c.prefix == "" {
		return objectKey
	}
	return path.Join(c.prefix, objectKey)
}

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	input := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(in.ObjectKey)),
		Body:   in.Reader,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("S3 PutObject: %w", err)
	}
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: in.Size}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(objectKey)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", 0, ports.ErrObjectNotFound
		}
		return nil, "", 0, fmt.Errorf("S3 GetObject: %w", err)
	}
	return out.Body, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength), nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(objectKey)),
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject: %w", err)
	}
	return nil
}

func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	req, err := c.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(objectKey)),
	}, awss3.WithPresignExpires(expiresIn))
	if err != nil {
		return ports.SignedURLOutput{}, fmt.Errorf("S3 presign: %w", err)
	}
	return ports.SignedURLOutput{URL: req.URL, ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
