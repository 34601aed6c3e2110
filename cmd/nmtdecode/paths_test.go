package main

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveModelFiles(t *testing.T) {
	t.Parallel()

	t.Run("siblings are found beside the model", func(t *testing.T) {
		dir := t.TempDir()
		model := filepath.Join(dir, "model.safetensors")
		touch(t, model)
		touch(t, filepath.Join(dir, defaultSourceVocab))
		touch(t, filepath.Join(dir, defaultTargetVocab))

		got, err := resolveModelFiles(model, "", "", "")
		if err != nil {
			t.Fatalf("resolveModelFiles returned error: %v", err)
		}
		if got.SourceVocab != filepath.Join(dir, defaultSourceVocab) {
			t.Fatalf("unexpected source vocab: %q", got.SourceVocab)
		}
		if got.TargetVocab != filepath.Join(dir, defaultTargetVocab) {
			t.Fatalf("unexpected target vocab: %q", got.TargetVocab)
		}
		if got.Shortlist != "" {
			t.Fatalf("expected no shortlist, got %q", got.Shortlist)
		}
	})

	t.Run("shortlist is picked up when present", func(t *testing.T) {
		dir := t.TempDir()
		model := filepath.Join(dir, "model.safetensors")
		for _, name := range []string{"model.safetensors", defaultSourceVocab, defaultTargetVocab, defaultShortlist} {
			touch(t, filepath.Join(dir, name))
		}
		got, err := resolveModelFiles(model, "", "", "")
		if err != nil {
			t.Fatalf("resolveModelFiles returned error: %v", err)
		}
		if got.Shortlist != filepath.Join(dir, defaultShortlist) {
			t.Fatalf("unexpected shortlist: %q", got.Shortlist)
		}
	})

	t.Run("explicit paths win", func(t *testing.T) {
		dir := t.TempDir()
		other := t.TempDir()
		model := filepath.Join(dir, "model.safetensors")
		touch(t, model)
		src := filepath.Join(other, "src.yaml")
		trg := filepath.Join(other, "trg.yaml")
		touch(t, src)
		touch(t, trg)

		got, err := resolveModelFiles(model, src, trg, "")
		if err != nil {
			t.Fatalf("resolveModelFiles returned error: %v", err)
		}
		if got.SourceVocab != src || got.TargetVocab != trg {
			t.Fatalf("unexpected vocab paths: %+v", got)
		}
	})

	t.Run("missing model path", func(t *testing.T) {
		if _, err := resolveModelFiles("  ", "", "", ""); err == nil {
			t.Fatalf("expected error for empty model path")
		}
	})

	t.Run("missing vocabulary", func(t *testing.T) {
		dir := t.TempDir()
		model := filepath.Join(dir, "model.safetensors")
		touch(t, model)
		if _, err := resolveModelFiles(model, "", "", ""); err == nil {
			t.Fatalf("expected error for missing vocabularies")
		}
	})

	t.Run("explicit shortlist must exist", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"model.safetensors", defaultSourceVocab, defaultTargetVocab} {
			touch(t, filepath.Join(dir, name))
		}
		_, err := resolveModelFiles(filepath.Join(dir, "model.safetensors"), "", "", filepath.Join(dir, "nope.yaml"))
		if err == nil {
			t.Fatalf("expected error for missing shortlist")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file is empty config", func(t *testing.T) {
		c, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
		if c.Model != "" || c.BeamSize != nil {
			t.Fatalf("expected zero config, got %+v", c)
		}
	})

	t.Run("fields are parsed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "model: /models/en-de.safetensors\nbeam_size: 5\nnormalize: false\nlog_level: debug\nstore_size: 10\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		c, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
		if c.Model != "/models/en-de.safetensors" {
			t.Fatalf("unexpected model: %q", c.Model)
		}
		if c.BeamSize == nil || *c.BeamSize != 5 {
			t.Fatalf("unexpected beam size: %v", c.BeamSize)
		}
		if c.Normalize == nil || *c.Normalize {
			t.Fatalf("expected normalize=false, got %v", c.Normalize)
		}
		if c.NBest != nil {
			t.Fatalf("expected n_best unset")
		}
		if c.LogLevel != "debug" {
			t.Fatalf("unexpected log level: %q", c.LogLevel)
		}
		if c.StoreSize == nil || *c.StoreSize != 10 {
			t.Fatalf("unexpected store size: %v", c.StoreSize)
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("beam_size: [1, 2\n"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}
