package model

import (
	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/safetensors"
	"github.com/samcharles93/nmtdecode/internal/tensor"
)

// Load reads a dl4mt checkpoint converted to safetensors. Model dimensions
// are inferred from the embedding, recurrent and output tensors; every other
// tensor is then checked against them.
func Load(path string) (*Weights, error) {
	st, err := safetensors.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open weights")
	}
	defer func() { _ = st.Close() }()

	cfg, err := inferConfig(st)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	w := &Weights{Config: cfg}
	for _, p := range w.params() {
		if _, ok := st.Tensor(p.name); !ok {
			if !p.optional {
				return nil, errors.Wrapf(safetensors.ErrTensorNotFound, "%s: %s", path, p.name)
			}
			*p.m = tensor.NewMat(p.rows, p.cols)
			continue
		}
		var m tensor.Mat
		if p.rows == 1 {
			m, err = tensor.LoadSafetensorsRow(st, p.name)
		} else {
			m, err = loadMatOrColumn(st, p.name, p.cols)
		}
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		*p.m = m
	}
	if err := w.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return w, nil
}

// loadMatOrColumn accepts a 1D tensor for single-column parameters
// (decoder_U_att is stored as a vector by some exporters).
func loadMatOrColumn(st *safetensors.File, name string, cols int) (tensor.Mat, error) {
	info, _ := st.Tensor(name)
	if cols == 1 && len(info.Shape) == 1 {
		row, err := tensor.LoadSafetensorsRow(st, name)
		if err != nil {
			return tensor.Mat{}, err
		}
		return tensor.NewMatFromData(row.C, 1, row.Data), nil
	}
	return tensor.LoadSafetensorsMat(st, name)
}

func inferConfig(st *safetensors.File) (Config, error) {
	dims := func(name string) ([]int, error) {
		info, ok := st.Tensor(name)
		if !ok {
			return nil, errors.Wrap(safetensors.ErrTensorNotFound, name)
		}
		if len(info.Shape) != 2 {
			return nil, errors.Wrapf(ErrShape, "%s: expected 2D tensor, got %v", name, info.Shape)
		}
		return info.Shape, nil
	}
	var cfg Config
	src, err := dims("Wemb")
	if err != nil {
		return cfg, err
	}
	trg, err := dims("Wemb_dec")
	if err != nil {
		return cfg, err
	}
	ux, err := dims("decoder_Ux")
	if err != nil {
		return cfg, err
	}
	logit, err := dims("ff_logit_W")
	if err != nil {
		return cfg, err
	}
	cfg = Config{
		DimEmb:   trg[1],
		DimRnn:   ux[0],
		DimOut:   logit[0],
		SrcVocab: src[0],
		TrgVocab: trg[0],
	}
	return cfg, cfg.validate()
}

// Save writes w in the layout Load expects. Optional parameters are written
// too, so a saved model never depends on zero defaults.
func Save(path string, w *Weights, dtype string) error {
	if err := w.Validate(); err != nil {
		return err
	}
	ps := w.params()
	tensors := make([]safetensors.Tensor, 0, len(ps))
	for _, p := range ps {
		tensors = append(tensors, tensor.ToSafetensors(p.name, p.m))
	}
	return safetensors.Write(path, tensors, safetensors.WriteOptions{
		DType:    dtype,
		Metadata: map[string]string{"format": "dl4mt"},
	})
}
