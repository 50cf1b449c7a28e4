package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/groupbuy_api/internal/datastore"
	"github.com/GTDGit/groupbuy_api/internal/models"
)

func setFileStoreEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	t.Setenv("JWT_SECRET", "admin-cli-secret")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DATASTORE_DRIVER", "file")
	t.Setenv("DATASTORE_PATH", path)
	return path
}

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := runAdmin(t, "hash-password", "s3cret")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("hash %q does not verify: %v", hash, err)
	}
}

func TestCreateUserWritesToFileStore(t *testing.T) {
	path := setFileStoreEnv(t)

	if _, err := runAdmin(t, "create-user", "--username", "carol", "--password", "carol-pass", "--role", "admin"); err != nil {
		t.Fatalf("create-user: %v", err)
	}

	store, err := datastore.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer store.Close()

	doc, err := store.Get(context.Background(), datastore.Users, "carol")
	if err != nil {
		t.Fatalf("Get carol: %v", err)
	}
	var u models.User
	if err := json.Unmarshal(doc.Body, &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Role != models.RoleAdmin || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("carol-pass")) != nil {
		t.Fatalf("user = %+v", u)
	}
}

func TestCreateUserRefusesWhileStoreIsOpen(t *testing.T) {
	path := setFileStoreEnv(t)

	running, err := datastore.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer running.Close()

	_, err = runAdmin(t, "create-user", "--username", "dave", "--password", "dave-pass")
	if !errors.Is(err, datastore.ErrLocked) {
		t.Fatalf("create-user = %v, want ErrLocked", err)
	}
	if !strings.Contains(err.Error(), "stop the API server") {
		t.Fatalf("error %q does not tell the operator what to do", err)
	}
	if _, err := running.Get(context.Background(), datastore.Users, "dave"); !errors.Is(err, datastore.ErrNotFound) {
		t.Fatalf("Get dave = %v, want ErrNotFound", err)
	}
}

func TestExportWritesSnapshot(t *testing.T) {
	setFileStoreEnv(t)

	if _, err := runAdmin(t, "create-user", "--username", "erin", "--password", "erin-pass"); err != nil {
		t.Fatalf("create-user: %v", err)
	}
	out, err := runAdmin(t, "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var top map[string][]json.RawMessage
	if err := json.Unmarshal([]byte(out), &top); err != nil {
		t.Fatalf("decode export: %v (%s)", err, out)
	}
	if len(top["users"]) != 1 {
		t.Fatalf("users = %s", top["users"])
	}
}
