package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fjod/natal_store/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	gifBytes = []byte("GIF89a\x01\x00\x01\x00")
)

type fakeS3 struct {
	m       sync.Mutex
	puts    []*s3.PutObjectInput
	headErr error
	created []string
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.created = append(f.created, *in.Bucket)
	return &s3.CreateBucketOutput{}, nil
}

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{"png", pngBytes, "image/png", nil},
		{"gif", gifBytes, "image/gif", nil},
		{"text", []byte("hello world"), "", ErrUnsupportedType},
		{"pdf", []byte("%PDF-1.4\n"), "", ErrUnsupportedType},
		{"empty", nil, "", ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectImageType(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductImageKey(t *testing.T) {
	key := ProductImageKey("Foto.PNG", "image/png")
	assert.True(t, strings.HasPrefix(key, "products/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	assert.True(t, strings.HasSuffix(ProductImageKey("icon.ICO", "image/x-icon"), ".ico"))
	assert.NotEqual(t, ProductImageKey("a.png", "image/png"), ProductImageKey("a.png", "image/png"))
}

func TestDataURLStorage(t *testing.T) {
	url, err := Upload(context.Background(), DataURLStorage{}, "tiny.gif", gifBytes)
	require.NoError(t, err)
	assert.Equal(t, "data:image/gif;base64,R0lGODlhAQABAA==", url)
}

func TestUpload_RejectsNonImages(t *testing.T) {
	fake := &fakeS3{}
	storage := &S3Storage{client: fake, bucket: "products", publicURL: "https://cdn.example.com"}

	_, err := Upload(context.Background(), storage, "notes.txt", []byte("just text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Empty(t, fake.puts)
}

func TestS3Storage_Put(t *testing.T) {
	fake := &fakeS3{}
	storage := &S3Storage{client: fake, bucket: "products", publicURL: "https://cdn.example.com"}

	url, err := Upload(context.Background(), storage, "arvore.png", pngBytes)
	require.NoError(t, err)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "products", *put.Bucket)
	assert.Equal(t, "image/png", *put.ContentType)
	assert.Equal(t, "https://cdn.example.com/"+*put.Key, url)

	body, err := io.ReadAll(put.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, body)
}

func TestS3Storage_PutError(t *testing.T) {
	storage := &S3Storage{client: &fakeS3{putErr: errors.New("access denied")}, bucket: "products"}

	_, err := storage.Put(context.Background(), "products/x.png", "image/png", pngBytes)
	assert.ErrorContains(t, err, "access denied")

	_, err = storage.Put(context.Background(), "", "image/png", pngBytes)
	assert.Error(t, err)
}

func TestS3Storage_EnsureBucket(t *testing.T) {
	fake := &fakeS3{headErr: &types.NotFound{}}
	storage := &S3Storage{client: fake, bucket: "products"}
	require.NoError(t, storage.EnsureBucket(context.Background()))
	assert.Equal(t, []string{"products"}, fake.created)

	existing := &fakeS3{}
	storage = &S3Storage{client: existing, bucket: "products"}
	require.NoError(t, storage.EnsureBucket(context.Background()))
	assert.Empty(t, existing.created)

	broken := &fakeS3{headErr: errors.New("timeout")}
	storage = &S3Storage{client: broken, bucket: "products"}
	assert.Error(t, storage.EnsureBucket(context.Background()))
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL(config.S3Config{PublicURL: "https://cdn.example.com/", Bucket: "b"}))
	assert.Equal(t, "http://localhost:9000/b", publicBaseURL(config.S3Config{Endpoint: "http://localhost:9000", Bucket: "b"}))
	assert.Equal(t, "https://b.s3.sa-east-1.amazonaws.com", publicBaseURL(config.S3Config{Bucket: "b", Region: "sa-east-1"}))
}

func TestNewS3Storage_PathStyleEndpoint(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:     server.URL,
		Region:       "us-east-1",
		Bucket:       "natal",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	url, err := storage.Put(context.Background(), "products/a.png", "image/png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/natal/products/a.png", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/natal/products/a.png", path)
}

func TestNewS3Storage_RequiresConfig(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.S3Config{})
	assert.Error(t, err)

	_, err = NewS3Storage(context.Background(), config.S3Config{Bucket: "b"})
	assert.Error(t, err)
}

func TestNewStorage_FallsBackToDataURL(t *testing.T) {
	s, err := NewStorage(context.Background(), config.S3Config{})
	require.NoError(t, err)
	assert.IsType(t, DataURLStorage{}, s)
}
