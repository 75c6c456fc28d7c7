package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"qcledger/internal/blob/core"
	"testing"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "backups",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Bucket() != "backups" || s.Driver() != core.DriverS3 {
		t.Fatalf("unexpected store %+v", s)
	}
}

func TestMockStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	key := "certificates/cement/info.json"
	if _, err := s.Put(ctx, key, bytes.NewReader([]byte(`{"number":"1"}`)), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	info, err := s.Put(ctx, key, bytes.NewReader([]byte(`{"number":"22"}`)), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if info.Size != int64(len(`{"number":"22"}`)) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	_, rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"number":"22"}` {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := s.Put(ctx, "backup_restore.json", bytes.NewReader([]byte(`{}`)), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	infos, err := s.List(ctx, "certificates/")
	if err != nil || len(infos) != 1 || infos[0].Key != key {
		t.Fatalf("List: %+v %v", infos, err)
	}
	deleted, err := s.Delete(ctx, key)
	if err != nil || !deleted {
		t.Fatalf("Delete: %v %v", deleted, err)
	}
	deleted, err = s.Delete(ctx, key)
	if err != nil || deleted {
		t.Fatalf("second delete: %v %v", deleted, err)
	}
	if _, _, err := s.Get(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
