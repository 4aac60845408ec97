package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vt-go/internal/vt"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeS3 is an in-memory bucket. Multipart calls are rejected; snapshots in
// these tests are below the uploader's part size.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]fakeObject
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: make(map[string]fakeObject)}
}

var errMultipart = errors.New("multipart not supported by fake")

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data)), Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Vault_Snapshot(t *testing.T) {
	fake := newFakeS3("journals")
	v := newS3VaultWithClient("remote", "journals", "backups", fake)

	data := strings.Repeat("encrypted-journal", 64)
	if err := v.PutSnapshot("journal-1", strings.NewReader(data), int64(len(data)), 9); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	if _, ok := fake.objects["backups/snapshots/journal-1.db.age"]; !ok {
		t.Errorf("object keys = %v, want backups/snapshots/journal-1.db.age", keys(fake))
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot("journal-1", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetSnapshot() returned %d bytes, want %d", buf.Len(), len(data))
	}

	version, err := v.GetSnapshotVersion("journal-1")
	if err != nil {
		t.Fatalf("GetSnapshotVersion() error = %v", err)
	}
	if version != 9 {
		t.Errorf("GetSnapshotVersion() = %d, want 9", version)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	v := newS3VaultWithClient("remote", "journals", "", newFakeS3("journals"))

	if err := v.PutSnapshot("j", strings.NewReader("abc"), 10, 1); err == nil {
		t.Error("PutSnapshot() expected size mismatch error")
	}
}

func TestS3Vault_Missing(t *testing.T) {
	v := newS3VaultWithClient("remote", "journals", "", newFakeS3("journals"))

	version, err := v.GetSnapshotVersion("nobody")
	if err != nil || version != 0 {
		t.Errorf("GetSnapshotVersion() = (%d, %v), want (0, nil)", version, err)
	}
	if err := v.GetSnapshot("nobody", io.Discard); !errors.Is(err, vt.ErrSnapshotNotFound) {
		t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	fake := newFakeS3("journals")

	if err := newS3VaultWithClient("ok", "journals", "", fake).ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
	if err := newS3VaultWithClient("bad", "other", "", fake).ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for missing bucket")
	}
}

func keys(f *fakeS3) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}
