package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"         //nolint:staticcheck
	"github.com/aws/aws-sdk-go/aws/request" //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3"  //nolint:staticcheck
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpg"},
		{"IMAGE/JPEG", "jpg"},
		{"image/jpg", "jpg"},
		{"image/webp", "webp"},
		{"image/gif", "gif"},
		{"image/png; charset=binary", "png"},
		{"", "png"},
		{"application/octet-stream", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionFor(tt.mimeType))
		})
	}
}

func TestFileStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")
	store := NewFileStore(dir)
	assert.Equal(t, dir, store.Dir())

	path, err := store.Save(context.Background(), "glyph", []byte("PNGDATA"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "glyph.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), data)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	_, err := store.Save(ctx, "spiral", []byte("first"), "image/jpeg")
	require.NoError(t, err)
	path, err := store.Save(ctx, "spiral", []byte("second"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "spiral.jpg", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileStore_Errors(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Save(context.Background(), "", []byte("x"), "image/png")
	assert.ErrorIs(t, err, ErrEmptyName)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, "glyph", []byte("x"), "image/png")
	assert.ErrorIs(t, err, context.Canceled)

	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	_, err = NewFileStore(blocker).Save(context.Background(), "glyph", []byte("x"), "image/png")
	assert.Error(t, err)
}

type mockPutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockPutter) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	m.input = input
	if input.Body != nil {
		m.body, _ = io.ReadAll(input.Body)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		mime    string
		wantKey string
		wantCT  string
	}{
		{name: "no prefix", prefix: "", mime: "image/png", wantKey: "glyph.png", wantCT: "image/png"},
		{name: "trimmed prefix", prefix: "/runs/abc/", mime: "image/jpeg", wantKey: "runs/abc/glyph.jpg", wantCT: "image/jpeg"},
		{name: "missing mime", prefix: "out", mime: "", wantKey: "out/glyph.png", wantCT: "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			putter := &mockPutter{}
			store := newS3Store(putter, "bucket", tt.prefix)

			uri, err := store.Save(context.Background(), "glyph", []byte("PNGDATA"), tt.mime)
			require.NoError(t, err)
			assert.Equal(t, "s3://bucket/"+tt.wantKey, uri)
			assert.Equal(t, "bucket", aws.StringValue(putter.input.Bucket))
			assert.Equal(t, tt.wantKey, aws.StringValue(putter.input.Key))
			assert.Equal(t, tt.wantCT, aws.StringValue(putter.input.ContentType))
			assert.Equal(t, []byte("PNGDATA"), putter.body)
		})
	}
}

func TestS3Store_Errors(t *testing.T) {
	putter := &mockPutter{err: errors.New("access denied")}
	store := newS3Store(putter, "bucket", "")

	_, err := store.Save(context.Background(), "glyph", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = store.Save(context.Background(), "", []byte("x"), "image/png")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewS3Store("us-east-1", "", "")
	assert.Error(t, err)
}

func TestS3Store_WithPrefix(t *testing.T) {
	putter := &mockPutter{}
	base := newS3Store(putter, "bucket", "scoreviz")

	assert.Equal(t, "scoreviz/run-1/glyph.png", base.WithPrefix("run-1").Key("glyph", "image/png"))
	assert.Equal(t, "run-1/glyph.png", newS3Store(putter, "bucket", "").WithPrefix("/run-1/").Key("glyph", "image/png"))
	assert.Equal(t, "scoreviz/glyph.png", base.Key("glyph", "image/png"), "base store is unchanged")
}
