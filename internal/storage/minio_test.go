package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"filevault/internal/config"
)

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"plain endpoint", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "files"}, "http://localhost:9000/files"},
		{"ssl endpoint", config.MinIOConfig{Endpoint: "s3.example.com", Bucket: "files", UseSSL: true}, "https://s3.example.com/files"},
		{"public url wins", config.MinIOConfig{Endpoint: "minio:9000", Bucket: "files", PublicURL: "https://cdn.example.com/files/"}, "https://cdn.example.com/files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicBaseURL(tt.cfg))
		})
	}
}

func TestMinioStorageURL(t *testing.T) {
	m := &minioStorage{baseURL: "https://cdn.example.com/files"}
	assert.Equal(t, "https://cdn.example.com/files/files/abc.png", m.URL("/files/abc.png"))
}

func TestNewMinIOValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewMinIO(ctx, config.MinIOConfig{})
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = NewMinIO(ctx, config.MinIOConfig{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "credentials are required")

	_, err = NewMinIO(ctx, config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket is required")
}
