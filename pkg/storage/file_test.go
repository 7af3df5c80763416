package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/tilezen/ogctiles/pkg/tile"
)

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	tileDir := filepath.Join(dir, "world", "3", "2")
	if err := os.MkdirAll(tileDir, 0755); err != nil {
		t.Fatalf("Unable to create tile dir: %s", err.Error())
	}
	if err := ioutil.WriteFile(filepath.Join(tileDir, "1.pbf"), []byte{0x1a, 0x02}, 0644); err != nil {
		t.Fatalf("Unable to write tile: %s", err.Error())
	}

	pattern := tile.MustParseTemplate(filepath.ToSlash(dir) + "/{layer}/{z}/{x}/{y}.{fmt}")
	storage := NewFileStorage(pattern, "")

	resp, err := storage.Fetch(context.Background(), tile.Coord{Z: 3, X: 2, Y: 1, Format: "pbf"}, "world")
	if err != nil {
		t.Fatalf("Unable to fetch tile: %s", err.Error())
	}
	if resp.NotFound || resp.Response == nil {
		t.Fatalf("Expected the tile to be found")
	}
	if string(resp.Response.Body) != "\x1a\x02" {
		t.Fatalf("Unexpected body %#v", resp.Response.Body)
	}
	if resp.Response.LastModified == nil {
		t.Fatalf("Expected a modification time")
	}

	resp, err = storage.Fetch(context.Background(), tile.Coord{Z: 3, X: 2, Y: 2, Format: "pbf"}, "world")
	if err != nil {
		t.Fatalf("Unable to fetch missing tile: %s", err.Error())
	}
	if !resp.NotFound {
		t.Fatalf("Expected a missing tile to be not found")
	}
}

func TestFileStorageHealthCheck(t *testing.T) {
	dir := t.TempDir()
	healthy := filepath.Join(dir, "healthcheck")
	if err := ioutil.WriteFile(healthy, []byte("ok"), 0644); err != nil {
		t.Fatalf("Unable to write healthcheck file: %s", err.Error())
	}

	pattern := tile.MustParseTemplate(filepath.ToSlash(dir) + "/{z}/{x}/{y}.{fmt}")
	ctx := context.Background()
	if err := NewFileStorage(pattern, filepath.ToSlash(healthy)).HealthCheck(ctx); err != nil {
		t.Fatalf("Expected healthy storage: %s", err.Error())
	}
	if err := NewFileStorage(pattern, filepath.ToSlash(filepath.Join(dir, "missing"))).HealthCheck(ctx); err == nil {
		t.Fatalf("Expected a missing healthcheck file to fail")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := NewFileStorage(pattern, filepath.ToSlash(healthy)).HealthCheck(canceled); err != context.Canceled {
		t.Fatalf("Expected a canceled healthcheck, got %#v", err)
	}
}
