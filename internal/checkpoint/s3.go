package checkpoint

import (
	"bytes"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
	"github.com/pkg/errors"
)

// S3Store archives checkpoints to an S3 bucket, the slow half of a Paired
// store: durable, but too slow to serve VIEWCHECKPOINT directly.
type S3Store struct {
	client *s3.S3
	bucket string
}

var _ Enumerable = (*S3Store)(nil)

// NewS3Store opens a session against region using the named shared
// credentials profile.
func NewS3Store(region, profile, bucket string) (*S3Store, error) {
	const maxRetries = 16
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewSharedCredentials("", profile),
		MaxRetries:  aws.Int(maxRetries),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &S3Store{client: s3.New(sess), bucket: bucket}, nil
}

func (s *S3Store) Get(key Key) (Value, error) {
	output, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok && rfErr.StatusCode() == http.StatusNotFound {
			return nil, errors.Wrapf(ErrNotFound, "key=%q", key)
		}
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			log.WithField("op", "checkpoint.S3Store.Get").WithError(err).Warn("could not close response body")
		}
	}()
	return io.ReadAll(output.Body)
}

func (s *S3Store) Put(key Key, value Value) error {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
		Body:   bytes.NewReader(value),
	})
	return errors.WithStack(err)
}

func (s *S3Store) Delete(key Key) error {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	})
	return errors.WithStack(err)
}

func (s *S3Store) Contains(key Key) (bool, error) {
	_, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(string(key)),
	})
	if err != nil {
		if rfErr, ok := err.(awserr.RequestFailure); ok && rfErr.StatusCode() == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) ForEach(cb func(Key) error) error {
	input := &s3.ListObjectsInput{Bucket: aws.String(s.bucket)}
	for {
		output, err := s.client.ListObjects(input)
		if err != nil {
			return err
		}
		for _, o := range output.Contents {
			if err := cb(Key(*o.Key)); err != nil {
				return err
			}
		}
		if output.NextMarker == nil {
			return nil
		}
		input.Marker = output.NextMarker
	}
}
