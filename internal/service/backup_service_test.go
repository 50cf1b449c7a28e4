package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestBackupUploadsSnapshot(t *testing.T) {
	store := newTestStore(t)
	up := &fakeUploader{}
	s := newBackupService(store, up, "bucket", "backups")
	s.now = func() time.Time { return time.Date(2024, 5, 15, 3, 0, 0, 0, time.UTC) }

	key, err := s.Backup(bg)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if key != "backups/db-20240515T030000Z.json" {
		t.Fatalf("key = %q", key)
	}
	if aws.ToString(up.input.Bucket) != "bucket" || aws.ToString(up.input.Key) != key {
		t.Fatalf("input = %+v", up.input)
	}
	snap, _ := store.Snapshot(bg)
	if string(up.body) != string(snap) {
		t.Fatalf("uploaded body differs from snapshot")
	}
}

func TestBackupUploadError(t *testing.T) {
	up := &fakeUploader{err: errors.New("denied")}
	s := newBackupService(newTestStore(t), up, "bucket", "")

	if _, err := s.Backup(bg); err == nil {
		t.Fatal("Backup err = nil, want upload error")
	}
}
