package safetensors

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Tensor is a named float32 tensor to be written.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

// WriteOptions controls Write.
type WriteOptions struct {
	// DType is "F32" (default) or "F16".
	DType    string
	Metadata map[string]string
}

// Write stores tensors at path. Tensors are laid out in name order so the
// output is deterministic.
func Write(path string, tensors []Tensor, opts WriteOptions) error {
	dtype := opts.DType
	if dtype == "" {
		dtype = "F32"
	}
	var elemSize int64
	switch dtype {
	case "F32":
		elemSize = 4
	case "F16":
		elemSize = 2
	default:
		return errors.Wrap(ErrUnsupportedDType, dtype)
	}

	sorted := slices.Clone(tensors)
	slices.SortFunc(sorted, func(a, b Tensor) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	header := make(map[string]any, len(sorted)+1)
	if len(opts.Metadata) > 0 {
		header["__metadata__"] = opts.Metadata
	}
	var off int64
	for i, t := range sorted {
		if i > 0 && sorted[i-1].Name == t.Name {
			return errors.Errorf("duplicate tensor %s", t.Name)
		}
		n, err := numElements(t.Shape)
		if err != nil {
			return errors.Wrapf(err, "tensor %s", t.Name)
		}
		if n != len(t.Data) {
			return errors.Errorf("tensor %s: shape %v does not match %d values", t.Name, t.Shape, len(t.Data))
		}
		end := off + int64(n)*elemSize
		header[t.Name] = tensorHeader{DType: dtype, Shape: t.Shape, DataOffsets: []int64{off, end}}
		off = end
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := writePayload(w, headerBytes, sorted, dtype); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

func writePayload(w *bufio.Writer, headerBytes []byte, tensors []Tensor, dtype string) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(headerBytes)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(headerBytes); err != nil {
		return err
	}
	for _, t := range tensors {
		for _, v := range t.Data {
			var err error
			if dtype == "F16" {
				binary.LittleEndian.PutUint16(buf[:2], float16.Fromfloat32(v).Bits())
				_, err = w.Write(buf[:2])
			} else {
				binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
				_, err = w.Write(buf[:4])
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
