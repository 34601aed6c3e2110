package safetensors

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/sys/unix"
)

var (
	ErrTensorNotFound   = errors.New("tensor not found")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrCorruptFile      = errors.New("corrupt safetensors file")
)

type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

// File is an opened safetensors file. The data section is memory mapped when
// the platform allows it; Close releases the mapping.
type File struct {
	Path      string
	DataStart int64
	Tensors   map[string]TensorInfo
	Metadata  map[string]string

	data    []byte
	mmapped bool
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Open maps path read-only and parses its header. If mmap fails the whole
// file is read into memory instead.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < 8 || size > int64(int(^uint(0)>>1)) {
		return nil, errors.Wrapf(ErrCorruptFile, "%s: size %d", path, size)
	}

	mmapped := true
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		mmapped = false
		data = make([]byte, size)
		if _, err := io.ReadFull(f, data); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
	}

	sf, err := parse(path, data)
	if err != nil {
		if mmapped {
			_ = unix.Munmap(data)
		}
		return nil, err
	}
	sf.mmapped = mmapped
	return sf, nil
}

func parse(path string, data []byte) (*File, error) {
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return nil, errors.Wrapf(ErrCorruptFile, "%s: header length %d", path, headerLen)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &raw); err != nil {
		return nil, errors.Wrapf(err, "%s: parse header", path)
	}

	sf := &File{
		Path:      path,
		DataStart: int64(8 + headerLen),
		Tensors:   make(map[string]TensorInfo, len(raw)),
		data:      data,
	}
	if meta, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(meta, &sf.Metadata); err != nil {
			return nil, errors.Wrapf(err, "%s: parse metadata", path)
		}
		delete(raw, "__metadata__")
	}

	dataLen := int64(len(data)) - sf.DataStart
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, errors.Wrapf(err, "parse tensor %s", name)
		}
		if len(th.DataOffsets) != 2 {
			return nil, errors.Wrapf(ErrCorruptFile, "tensor %s: invalid data_offsets", name)
		}
		if th.DataOffsets[0] < 0 || th.DataOffsets[1] < th.DataOffsets[0] || th.DataOffsets[1] > dataLen {
			return nil, errors.Wrapf(ErrCorruptFile, "tensor %s: offsets out of range", name)
		}
		sf.Tensors[name] = TensorInfo{
			DType: th.DType,
			Shape: th.Shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		}
	}
	return sf, nil
}

// Close releases the file mapping. Slices returned by ReadTensor must not be
// used afterwards.
func (f *File) Close() error {
	data := f.data
	f.data = nil
	if f.mmapped && data != nil {
		f.mmapped = false
		return unix.Munmap(data)
	}
	return nil
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

// ReadTensor returns the raw bytes of the named tensor. The slice aliases the
// mapping.
func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, errors.Wrap(ErrTensorNotFound, name)
	}
	if f.data == nil {
		return nil, TensorInfo{}, errors.Errorf("tensor %s: file is closed", name)
	}
	start := f.DataStart + t.Start
	end := f.DataStart + t.End
	return f.data[start:end], t, nil
}

// ReadTensorF32 decodes the named tensor into a freshly allocated float32
// slice. F32, F16 and BF16 payloads are supported.
func (f *File) ReadTensorF32(name string) ([]float32, TensorInfo, error) {
	raw, info, err := f.ReadTensor(name)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	n, err := numElements(info.Shape)
	if err != nil {
		return nil, TensorInfo{}, errors.Wrapf(err, "tensor %s", name)
	}
	out := make([]float32, n)
	switch info.DType {
	case "F32":
		if len(raw) != n*4 {
			return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid f32 data size", name)
		}
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case "F16":
		if len(raw) != n*2 {
			return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid f16 data size", name)
		}
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32()
		}
	case "BF16":
		if len(raw) != n*2 {
			return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid bf16 data size", name)
		}
		for i := range out {
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(raw[i*2:])) << 16)
		}
	default:
		return nil, TensorInfo{}, errors.Wrapf(ErrUnsupportedDType, "tensor %s: %s", name, info.DType)
	}
	return out, info, nil
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("empty shape")
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, errors.Errorf("invalid dim %d", d)
		}
		if d > 0 && n > (int(^uint(0)>>1))/d {
			return 0, errors.New("tensor too large")
		}
		n *= d
	}
	return n, nil
}
