package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestUploadReturnsPublicURL(t *testing.T) {
	fp := &fakePutter{}
	u := newUploader(fp, Config{Bucket: "imgs", Region: "eu-west-1", PublicHost: "https://cdn.example.com/"}, nil)

	url, err := u.Upload(context.Background(), "products/p1/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/products/p1/a.png", url)
	assert.Equal(t, "imgs", aws.ToString(fp.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fp.input.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(fp.input.ContentLength))
	assert.Equal(t, "png", fp.body)
}

func TestUploadBuffersUnknownSize(t *testing.T) {
	fp := &fakePutter{}
	u := newUploader(fp, Config{Bucket: "imgs", Region: "us-east-1"}, nil)

	url, err := u.Upload(context.Background(), "k.jpg", strings.NewReader("jpeg!"), 0, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://imgs.s3.us-east-1.amazonaws.com/k.jpg", url)
	assert.Equal(t, int64(5), aws.ToInt64(fp.input.ContentLength))
}

func TestUploadWrapsError(t *testing.T) {
	boom := errors.New("boom")
	u := newUploader(&fakePutter{err: boom}, Config{Bucket: "b"}, nil)
	_, err := u.Upload(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, boom)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
