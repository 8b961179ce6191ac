package spaces

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Client stores assignment attachments and submission files in an
// S3-compatible Spaces bucket.
type Client struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	cdnURL   string
}

// Config holds the Spaces connection settings.
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
}

// ConfigFromEnv builds a Config from SPACES_* environment variables. Returns
// an error when the bucket is not configured; callers treat that as "file
// storage disabled" rather than fatal.
func ConfigFromEnv() (Config, error) {
	config := Config{
		AccessKey: os.Getenv("SPACES_ACCESS_KEY"),
		SecretKey: os.Getenv("SPACES_SECRET_KEY"),
		Bucket:    os.Getenv("SPACES_BUCKET"),
		Region:    os.Getenv("SPACES_REGION"),
		Endpoint:  os.Getenv("SPACES_ENDPOINT"),
		CDNURL:    os.Getenv("SPACES_CDN_URL"),
	}
	if config.Bucket == "" || config.Region == "" {
		return config, fmt.Errorf("SPACES_BUCKET and SPACES_REGION must be configured")
	}
	if config.Endpoint == "" {
		config.Endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", config.Region)
	}
	return config, nil
}

// NewClient creates a new Spaces client
func NewClient(config Config) (*Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &Client{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		endpoint: config.Endpoint,
		cdnURL:   config.CDNURL,
	}, nil
}

// Upload stores data under key and returns its public URL. Submission files
// stay private; presigned URLs grant access.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(bytes.NewReader(data)),
		ACL:         aws.String("private"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return c.FileURL(key), nil
}

// Delete removes a stored object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// FileURL returns the canonical URL for a key.
func (c *Client) FileURL(key string) string {
	if c.cdnURL != "" {
		return fmt.Sprintf("%s/%s", c.cdnURL, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucket, c.endpoint, key)
}

// PresignedURL generates a temporary download link for a private object.
func (c *Client) PresignedURL(key string, expiration time.Duration) (string, error) {
	req, _ := c.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return url, nil
}

// SubmissionKey builds the storage key for a submission file.
func SubmissionKey(assignmentID, studentID uint, filename string) string {
	return fmt.Sprintf("submissions/%d/%d_%d%s",
		assignmentID, studentID, time.Now().Unix(), filepath.Ext(filename))
}

// AttachmentKey builds the storage key for an assignment attachment.
func AttachmentKey(subjectID uint, filename string) string {
	return fmt.Sprintf("assignments/%d/%d_%s", subjectID, time.Now().Unix(), filename)
}
