package animation

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"shortshive/internal/domain"
)

func TestArchiveBundlesCompletedScenes(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.addStory("s1", 3)
	h.gen.images = pngs(2)
	if _, err := h.svc.Generate(context.Background(), scenesRequest("s1", 1, 2, 3)); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, err := h.svc.Archive(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2 (scene 3 failed)", len(zr.File))
	}
	if zr.File[0].Name != "scene_01.png" || zr.File[1].Name != "scene_02.png" {
		t.Fatalf("unexpected names %q %q", zr.File[0].Name, zr.File[1].Name)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "png-2" {
		t.Fatalf("scene 2 bytes = %q", got)
	}
}

func TestArchiveWithoutCompletedImages(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.addStory("s1", 2)

	if _, err := h.svc.Archive(context.Background(), "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.svc.Archive(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown story, got %v", err)
	}
	if _, err := h.svc.Archive(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestArchiveSurfacesMissingBlob(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.addStory("s1", 1)
	h.gen.images = pngs(1)
	if _, err := h.svc.Generate(context.Background(), scenesRequest("s1", 1)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	h.blobs.mu.Lock()
	for key := range h.blobs.files {
		if key != placeholderKey {
			delete(h.blobs.files, key)
		}
	}
	h.blobs.mu.Unlock()

	if _, err := h.svc.Archive(context.Background(), "s1"); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
