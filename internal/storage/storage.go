// Package storage talks to the S3-compatible object store that holds the
// uploaded PDF decks.
package storage

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// MaxObjectSize caps how much of an object Get reads into memory.
	MaxObjectSize int64
}

type Objects struct {
	client  *s3.Client
	bucket  string
	maxSize int64
}

func New(ctx context.Context, cfg Config) (*Objects, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	httpClient := &http.Client{Transport: tr}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithHTTPClient(httpClient),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load s3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return NewWithClient(client, cfg.Bucket, cfg.MaxObjectSize), nil
}

func NewWithClient(client *s3.Client, bucket string, maxSize int64) *Objects {
	if maxSize <= 0 {
		maxSize = 100 << 20
	}
	return &Objects{client: client, bucket: bucket, maxSize: maxSize}
}

func (o *Objects) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "delete object %s", key)
}

func (o *Objects) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get object %s", key)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, o.maxSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s", key)
	}
	if int64(len(data)) > o.maxSize {
		return nil, errors.Errorf("object %s exceeds %d bytes", key, o.maxSize)
	}
	return data, nil
}

// ObjectKey derives the bucket key of a stored deck from its public URL: the
// last two path segments, "<user_id>/<file>.pdf".
func ObjectKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "parse object url")
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", errors.Errorf("object url %q has fewer than two path segments", rawURL)
	}
	return strings.Join(segments[len(segments)-2:], "/"), nil
}

// CleanURL escapes spaces and normalizes the URL when it parses.
func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsedURL.String()
}
