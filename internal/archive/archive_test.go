// File: internal/archive/archive_test.go
package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/access-provisioner/internal/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNewUploaderRequiresBucket(t *testing.T) {
	_, err := NewUploader(&fakeS3{}, config.S3Config{}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client := &fakeS3{}
		u, err := NewUploader(client, config.S3Config{Bucket: "runs", Prefix: "reports/"}, zaptest.NewLogger(t))
		require.NoError(t, err)

		file := writeReport(t, "report_20260314_093012.json", `{"total":1}`)
		uri, err := u.Upload(ctx, file)
		require.NoError(t, err)

		assert.Equal(t, "s3://runs/reports/report_20260314_093012.json", uri)
		require.NotNil(t, client.input)
		assert.Equal(t, "runs", aws.ToString(client.input.Bucket))
		assert.Equal(t, "reports/report_20260314_093012.json", aws.ToString(client.input.Key))
		assert.Equal(t, "application/json", aws.ToString(client.input.ContentType))
		assert.Equal(t, `{"total":1}`, string(client.body))
	})

	t.Run("TextReport", func(t *testing.T) {
		client := &fakeS3{}
		u, err := NewUploader(client, config.S3Config{Bucket: "runs"}, zaptest.NewLogger(t))
		require.NoError(t, err)

		uri, err := u.Upload(ctx, writeReport(t, "report.txt", "ok"))
		require.NoError(t, err)
		assert.Equal(t, "s3://runs/report.txt", uri)
		assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(client.input.ContentType))
	})

	t.Run("ClientError", func(t *testing.T) {
		putErr := errors.New("access denied")
		u, err := NewUploader(&fakeS3{err: putErr}, config.S3Config{Bucket: "runs"}, zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = u.Upload(ctx, writeReport(t, "report.json", "{}"))
		require.Error(t, err)
		assert.ErrorIs(t, err, putErr)
	})

	t.Run("MissingFile", func(t *testing.T) {
		client := &fakeS3{}
		u, err := NewUploader(client, config.S3Config{Bucket: "runs"}, zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = u.Upload(ctx, filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Nil(t, client.input)
	})
}
