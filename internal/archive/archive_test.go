package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

func TestKey(t *testing.T) {
	id := uuid.MustParse("6f1c9a52-2b8e-4d7a-9d55-0c3a1f6b2e11")
	at := time.Date(2026, 3, 7, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))

	got := Key(id, at)
	want := "2026/03/07/6f1c9a52-2b8e-4d7a-9d55-0c3a1f6b2e11.eml"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New(context.Background(), Config{Type: "tape"}); err == nil {
		t.Error("expected error for unknown store type")
	}
}

func TestDirStore_Put(t *testing.T) {
	base := t.TempDir()
	store, err := New(context.Background(), Config{Type: "dir", Path: base})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := []byte("Subject: hi\r\n\r\nbody\r\n")
	if err := store.Put(context.Background(), "2026/03/07/a.eml", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(base, "2026", "03", "07", "a.eml"))
	if err != nil {
		t.Fatalf("read archived file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("archived %q, want %q", got, data)
	}

	entries, err := os.ReadDir(filepath.Join(base, "2026", "03", "07"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestDirStore_Overwrite(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "m.eml", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "m.eml", []byte("second")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(store.base, "m.eml"))
	if string(got) != "second" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestNewDirStore_EmptyPath(t *testing.T) {
	if _, err := NewDirStore(""); err == nil {
		t.Error("expected error for empty path")
	}
}

type mockS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.input = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	mock := &mockS3{}
	store := NewS3Store(mock, "mail-archive", "relay/")

	if err := store.Put(context.Background(), "2026/03/07/a.eml", []byte("raw")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if *mock.input.Bucket != "mail-archive" {
		t.Errorf("bucket = %q", *mock.input.Bucket)
	}
	if *mock.input.Key != "relay/2026/03/07/a.eml" {
		t.Errorf("key = %q", *mock.input.Key)
	}
	if *mock.input.ContentType != "message/rfc822" {
		t.Errorf("content type = %q", *mock.input.ContentType)
	}
	if string(mock.body) != "raw" {
		t.Errorf("body = %q", mock.body)
	}
}

func TestS3Store_PutError(t *testing.T) {
	boom := errors.New("access denied")
	store := NewS3Store(&mockS3{err: boom}, "b", "")

	err := store.Put(context.Background(), "k", []byte("x"))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestNewS3StoreFromConfig_RequiresBucket(t *testing.T) {
	if _, err := NewS3StoreFromConfig(context.Background(), Config{Type: "s3"}); err == nil {
		t.Error("expected error without bucket")
	}
}
