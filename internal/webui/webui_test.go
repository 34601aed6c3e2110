package webui

import (
	"bytes"
	"testing"
)

func TestIndexIsEmbedded(t *testing.T) {
	t.Parallel()

	page := Index()
	if !bytes.Contains(page, []byte("/v1/translate")) {
		t.Fatalf("index page does not reference the translate endpoint")
	}
}
