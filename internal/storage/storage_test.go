package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
)

func TestFetchExportsFromLocalStorage(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStorage(t.TempDir())

	for key, body := range map[string]string{
		"exports/2025-03/1339.csv":  "Mağaza;SKU\n1339;P1\n",
		"exports/2025-03/7946.xlsx": "not really xlsx",
		"exports/2025-03/notes.txt": "ignore me",
		"other/1.csv":               "x",
	} {
		if err := store.UploadObject(ctx, key, []byte(body)); err != nil {
			t.Fatalf("UploadObject %s: %v", key, err)
		}
	}

	dest := t.TempDir()
	paths, err := FetchExports(ctx, store, "exports/", dest)
	if err != nil {
		t.Fatalf("FetchExports: %v", err)
	}
	want := []string{
		filepath.Join(dest, "2025-03", "1339.csv"),
		filepath.Join(dest, "2025-03", "7946.xlsx"),
	}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d = %s, want %s", i, paths[i], want[i])
		}
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "Mağaza;SKU\n1339;P1\n" {
		t.Fatalf("downloaded content = %q, %v", data, err)
	}
}

func TestNewMinioClientValidation(t *testing.T) {
	if _, err := NewMinioClient(configWith("", "a", "b", "bucket")); err == nil {
		t.Fatal("expected error without endpoint")
	}
	if _, err := NewMinioClient(configWith("localhost:9000", "", "", "bucket")); err == nil {
		t.Fatal("expected error without credentials")
	}
	c, err := NewMinioClient(configWith("http://localhost:9000", "a", "b", "bucket"))
	if err != nil {
		t.Fatalf("NewMinioClient: %v", err)
	}
	if c.bucket != "bucket" {
		t.Fatalf("bucket = %s", c.bucket)
	}
}

func TestIsExport(t *testing.T) {
	for key, want := range map[string]bool{"a.CSV": true, "b.xlsx": true, "c.xlsm": true, "d.pdf": false, "e": false} {
		if got := IsExport(key); got != want {
			t.Errorf("IsExport(%q) = %v, want %v", key, got, want)
		}
	}
}

func configWith(endpoint, access, secret, bucket string) config.StorageConfig {
	return config.StorageConfig{Endpoint: endpoint, AccessKey: access, SecretKey: secret, Bucket: bucket}
}
