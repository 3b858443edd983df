package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lecturecast/lecturecast/internal/storage"
)

func newTestStorage(t *testing.T, cfg storage.Config) *storage.Storage {
	t.Helper()
	s, err := storage.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error creating storage client, got: %v", err)
	}
	return s
}

func TestNewStorageRequiresConfig(t *testing.T) {
	// Should not panic with valid config (will fail to connect, but that's OK)
	newTestStorage(t, storage.Config{
		Endpoint:  "http://localhost:9000",
		Bucket:    "lectures",
		AccessKey: "test",
		SecretKey: "test",
	})
}

func TestGenerateDownloadURLUsesPublicEndpoint(t *testing.T) {
	s := newTestStorage(t, storage.Config{
		Endpoint:       "http://minio:9000",
		PublicEndpoint: "https://cdn.example.com",
		Bucket:         "lectures",
		AccessKey:      "test",
		SecretKey:      "test",
	})

	url, err := s.GenerateDownloadURL(context.Background(), "week0/lecture.mp4", time.Hour)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/lectures/week0/lecture.mp4") {
		t.Errorf("expected presigned URL on public endpoint, got %s", url)
	}
	if !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("expected signed URL, got %s", url)
	}
}

func TestReadObjectOnNilStorage(t *testing.T) {
	var s *storage.Storage
	if _, err := s.ReadObject(context.Background(), "key", 10); err == nil {
		t.Fatal("expected error for nil storage")
	}
}
