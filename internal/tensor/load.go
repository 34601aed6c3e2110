package tensor

import (
	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/safetensors"
)

// LoadSafetensorsMat loads a 2D matrix from a Safetensors file.
func LoadSafetensorsMat(st *safetensors.File, name string) (Mat, error) {
	data, info, err := st.ReadTensorF32(name)
	if err != nil {
		return Mat{}, err
	}
	if len(info.Shape) != 2 {
		return Mat{}, errors.Errorf("%s: expected 2D tensor, got shape %v", name, info.Shape)
	}
	r, c := info.Shape[0], info.Shape[1]
	if r*c != len(data) {
		return Mat{}, errors.Errorf("%s: size mismatch", name)
	}
	return NewMatFromData(r, c, data), nil
}

// LoadSafetensorsRow loads a bias as a 1×N matrix. Both 1D [N] and 2D [1,N]
// tensors are accepted; dl4mt checkpoints use either layout.
func LoadSafetensorsRow(st *safetensors.File, name string) (Mat, error) {
	data, info, err := st.ReadTensorF32(name)
	if err != nil {
		return Mat{}, err
	}
	switch {
	case len(info.Shape) == 1:
	case len(info.Shape) == 2 && info.Shape[0] == 1:
	default:
		return Mat{}, errors.Errorf("%s: expected 1D tensor, got shape %v", name, info.Shape)
	}
	return NewRowVector(data), nil
}

// ToSafetensors converts m to a writable tensor with the given name.
func ToSafetensors(name string, m *Mat) safetensors.Tensor {
	c := m.Clone()
	return safetensors.Tensor{Name: name, Shape: []int{c.R, c.C}, Data: c.Data}
}
