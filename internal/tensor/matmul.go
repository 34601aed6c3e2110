package tensor

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func general(m *Mat) blas32.General {
	return blas32.General{Rows: m.R, Cols: m.C, Stride: m.Stride, Data: m.Data}
}

// MatMul computes dst = a·b. dst is resized to a.R×b.C; it must not share
// storage with a or b.
func MatMul(dst, a, b *Mat) {
	if a.C != b.R {
		panic("matmul: dimension mismatch")
	}
	dst.Resize(a.R, b.C)
	if dst.Empty() {
		return
	}
	if a.C == 0 {
		dst.Zero()
		return
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, general(a), general(b), 0, general(dst))
}

// MatMulAdd computes dst += a·b. dst must already be a.R×b.C.
func MatMulAdd(dst, a, b *Mat) {
	if a.C != b.R || dst.R != a.R || dst.C != b.C {
		panic("matmul: dimension mismatch")
	}
	if dst.Empty() || a.C == 0 {
		return
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, general(a), general(b), 1, general(dst))
}

// Affine computes dst = a·w + bias, with bias broadcast over rows.
func Affine(dst, a, w, bias *Mat) {
	MatMul(dst, a, w)
	AddBiasRows(dst, bias)
}
