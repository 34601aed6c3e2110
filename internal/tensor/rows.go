package tensor

// AddBiasRows adds the 1×C bias to every row of m.
func AddBiasRows(m, bias *Mat) {
	if bias.R != 1 || bias.C != m.C {
		panic("add bias: dimension mismatch")
	}
	b := bias.Row(0)
	for i := 0; i < m.R; i++ {
		Add(m.Row(i), b)
	}
}

// AddMat adds src to dst element-wise. Both must have the same shape.
func AddMat(dst, src *Mat) {
	if !dst.SameShape(src) {
		panic("add: dimension mismatch")
	}
	for i := 0; i < dst.R; i++ {
		Add(dst.Row(i), src.Row(i))
	}
}

// Map replaces every element x of m with f(x).
func Map(m *Mat, f func(float32) float32) {
	for i := 0; i < m.R; i++ {
		row := m.Row(i)
		for j, v := range row {
			row[j] = f(v)
		}
	}
}

// Copy makes dst a compact copy of src.
func Copy(dst, src *Mat) {
	dst.Resize(src.R, src.C)
	for i := 0; i < src.R; i++ {
		copy(dst.Row(i), src.Row(i))
	}
}

// SelectRows gathers rows of src into dst: row i of dst is row ids[i] of src.
// The copy is bit-exact. dst must not share storage with src.
func SelectRows(dst, src *Mat, ids []int) {
	dst.Resize(len(ids), src.C)
	for i, id := range ids {
		copy(dst.Row(i), src.Row(id))
	}
}

// SelectCols gathers columns of src into dst: column j of dst is column
// ids[j] of src.
func SelectCols(dst, src *Mat, ids []int) {
	for _, id := range ids {
		if id < 0 || id >= src.C {
			panic("column index out of range")
		}
	}
	dst.Resize(src.R, len(ids))
	for i := 0; i < src.R; i++ {
		in, out := src.Row(i), dst.Row(i)
		for j, id := range ids {
			out[j] = in[id]
		}
	}
}

// RepeatRow fills dst with n copies of the single-row matrix row.
func RepeatRow(dst, row *Mat, n int) {
	if row.R != 1 {
		panic("repeat row: source must have one row")
	}
	dst.Resize(n, row.C)
	for i := 0; i < n; i++ {
		copy(dst.Row(i), row.Row(0))
	}
}

// MeanRows writes the column-wise mean of src into the 1×C matrix dst.
// src must have at least one row.
func MeanRows(dst, src *Mat) {
	if src.R == 0 {
		panic("mean rows: empty matrix")
	}
	dst.Resize(1, src.C)
	out := dst.Row(0)
	clear(out)
	for i := 0; i < src.R; i++ {
		Add(out, src.Row(i))
	}
	inv := 1 / float32(src.R)
	for j := range out {
		out[j] *= inv
	}
}

// SoftmaxRows applies Softmax to every row of m.
func SoftmaxRows(m *Mat) {
	for i := 0; i < m.R; i++ {
		Softmax(m.Row(i))
	}
}

// LogRows replaces every element of m with its natural logarithm.
func LogRows(m *Mat) {
	Map(m, Log)
}
