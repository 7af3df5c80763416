package storage

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/tilezen/ogctiles/pkg/tile"
)

type S3Storage struct {
	client      s3iface.S3API
	bucket      string
	keyPattern  *tile.Template
	healthcheck string
}

func NewS3Storage(api s3iface.S3API, bucket string, keyPattern *tile.Template, healthcheck string) *S3Storage {
	return &S3Storage{
		client:      api,
		bucket:      bucket,
		keyPattern:  keyPattern,
		healthcheck: healthcheck,
	}
}

func (s *S3Storage) objectKey(c tile.Coord, layer string) (string, error) {
	return s.keyPattern.Render(keyValues(c, layer))
}

func (s *S3Storage) Location(c tile.Coord, layer string) (string, error) {
	key, err := s.objectKey(c, layer)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Storage) Fetch(ctx context.Context, c tile.Coord, layer string) (*StorageResponse, error) {
	key, err := s.objectKey(c, layer)
	if err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{Bucket: &s.bucket, Key: &key}
	output, err := s.client.GetObjectWithContext(ctx, input)
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			// NOTE: the way to distinguish seems to be string matching on the code ...
			switch awsErr.Code() {
			case s3.ErrCodeNoSuchKey, "NotFound":
				return &StorageResponse{NotFound: true}, nil
			}
		}
		return nil, err
	}

	// ensure that it's safe to always close the body upstream
	var storageSize uint64
	var body []byte
	if output.Body == nil {
		body = make([]byte, 0)
	} else {
		defer output.Body.Close()
		body, err = ioutil.ReadAll(output.Body)
		if err != nil {
			return nil, err
		}

		if output.ContentLength != nil {
			storageSize = uint64(*output.ContentLength)
		}
	}

	return &StorageResponse{
		Response: &SuccessfulResponse{
			Body:         body,
			LastModified: output.LastModified,
			ETag:         output.ETag,
			Size:         storageSize,
		},
	}, nil
}

func (s *S3Storage) HealthCheck(ctx context.Context) error {
	if s.healthcheck == "" {
		return nil
	}
	input := &s3.HeadObjectInput{Bucket: &s.bucket, Key: &s.healthcheck}
	_, err := s.client.HeadObjectWithContext(ctx, input)
	return err
}

func (s *S3Storage) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.keyPattern.String())
}
