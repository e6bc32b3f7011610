package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type memoryBucket struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Key)] = data
	m.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestPutGetJSON(t *testing.T) {
	bucket := &memoryBucket{objects: map[string][]byte{}, types: map[string]string{}}
	store := &Store{client: bucket, bucket: "snapshots"}
	ctx := context.Background()

	in := map[string]int{"packs": 3}
	if err := store.PutJSON(ctx, "downtime/a/b.json", in); err != nil {
		t.Fatalf("put: %v", err)
	}
	if bucket.types["downtime/a/b.json"] != "application/json" {
		t.Fatalf("unexpected content type %q", bucket.types["downtime/a/b.json"])
	}

	var out map[string]int
	if err := store.GetJSON(ctx, "downtime/a/b.json", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out["packs"] != 3 {
		t.Fatalf("expected 3 packs, got %v", out)
	}

	if err := store.GetJSON(ctx, "missing.json", &out); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
