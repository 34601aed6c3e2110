package decoder

import (
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// Embeddings maps token ids to rows of the embedding table.
type Embeddings struct {
	w *model.EmbeddingWeights
}

func NewEmbeddings(w *model.EmbeddingWeights) *Embeddings {
	return &Embeddings{w: w}
}

// Lookup writes one embedding row per id into rows. An id outside the
// vocabulary panics.
func (e *Embeddings) Lookup(rows *tensor.Mat, ids []int) {
	tensor.SelectRows(rows, &e.w.E, ids)
}

// Rows is the vocabulary size.
func (e *Embeddings) Rows() int { return e.w.E.R }

// Cols is the embedding width.
func (e *Embeddings) Cols() int { return e.w.E.C }
