// Package tensor provides the dense array operations the encoder core is
// built on: row-major float64 tensors with shape/stride bookkeeping, batched
// matrix multiplication, broadcasting addition, softmax, and score masking.
package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tensor is an n-dimensional array of float64 values stored row-major in a
// flat slice. Operations return fresh tensors; MaskedFill is the single
// documented in-place exception.
type Tensor struct {
	Data    []float64
	Shape   []int
	Strides []int
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func shapeSize(shape []int) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}

// New creates a zero-filled tensor with the given shape.
func New(shape ...int) *Tensor {
	for _, dim := range shape {
		if dim < 0 {
			panic(fmt.Sprintf("tensor: negative dimension in shape %v", shape))
		}
	}
	return &Tensor{
		Data:    make([]float64, shapeSize(shape)),
		Shape:   append([]int(nil), shape...),
		Strides: computeStrides(shape),
	}
}

// FromSlice creates a tensor that owns a copy of data, laid out with the
// given shape. Returns an error if the element count does not match.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	if len(data) != shapeSize(shape) {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)",
			len(data), shape, shapeSize(shape))
	}
	t := New(shape...)
	copy(t.Data, data)
	return t, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.Shape...)
	copy(c.Data, t.Data)
	return c
}

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.Data) }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.Shape) }

// View returns a tensor with a different shape sharing the same backing
// data. The total element count must be unchanged.
func (t *Tensor) View(shape ...int) (*Tensor, error) {
	if shapeSize(shape) != len(t.Data) {
		return nil, fmt.Errorf("tensor: cannot view %d elements as shape %v", len(t.Data), shape)
	}
	return &Tensor{
		Data:    t.Data,
		Shape:   append([]int(nil), shape...),
		Strides: computeStrides(shape),
	}, nil
}

// Reshape is View for shapes known to be valid; invalid shapes are caller
// bugs and panic.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	v, err := t.View(shape...)
	if err != nil {
		panic(err)
	}
	return v
}

// Transpose returns a copy of the tensor with dimensions d1 and d2
// exchanged.
func (t *Tensor) Transpose(d1, d2 int) (*Tensor, error) {
	if d1 < 0 || d1 >= t.Rank() || d2 < 0 || d2 >= t.Rank() {
		return nil, fmt.Errorf("tensor: transpose dims (%d, %d) out of range for rank %d", d1, d2, t.Rank())
	}
	if d1 == d2 {
		return t.Clone(), nil
	}

	newShape := append([]int(nil), t.Shape...)
	newShape[d1], newShape[d2] = newShape[d2], newShape[d1]
	result := New(newShape...)

	idx := make([]int, t.Rank())
	var walk func(pos int)
	walk = func(pos int) {
		if pos == t.Rank() {
			dst := append([]int(nil), idx...)
			dst[d1], dst[d2] = dst[d2], dst[d1]
			result.Data[result.flatIndex(dst)] = t.Data[t.flatIndex(idx)]
			return
		}
		for i := 0; i < t.Shape[pos]; i++ {
			idx[pos] = i
			walk(pos + 1)
		}
	}
	walk(0)
	return result, nil
}

// Rows returns a copy of the first n rows of a 2D tensor.
func (t *Tensor) Rows(n int) (*Tensor, error) {
	if t.Rank() != 2 {
		return nil, fmt.Errorf("tensor: Rows requires a 2D tensor, got rank %d", t.Rank())
	}
	if n < 0 || n > t.Shape[0] {
		return nil, fmt.Errorf("tensor: row count %d out of range [0, %d]", n, t.Shape[0])
	}
	cols := t.Shape[1]
	out := New(n, cols)
	copy(out.Data, t.Data[:n*cols])
	return out, nil
}

func (t *Tensor) flatIndex(idx []int) int {
	if len(idx) != t.Rank() {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), t.Rank()))
	}
	flat := 0
	for i, v := range idx {
		if v < 0 || v >= t.Shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for dimension %d (size %d)", v, i, t.Shape[i]))
		}
		flat += v * t.Strides[i]
	}
	return flat
}

// At returns the element at the given indices.
func (t *Tensor) At(idx ...int) float64 { return t.Data[t.flatIndex(idx)] }

// SetAt stores v at the given indices.
func (t *Tensor) SetAt(v float64, idx ...int) { t.Data[t.flatIndex(idx)] = v }

// SameShape reports whether both tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if t.Rank() != o.Rank() {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// AllClose reports whether both tensors have the same shape and elementwise
// values within tol.
func (t *Tensor) AllClose(o *Tensor, tol float64) bool {
	if !t.SameShape(o) {
		return false
	}
	for i := range t.Data {
		if math.Abs(t.Data[i]-o.Data[i]) > tol {
			return false
		}
	}
	return true
}

// Scale returns the tensor multiplied elementwise by s.
func (t *Tensor) Scale(s float64) *Tensor {
	out := New(t.Shape...)
	for i, v := range t.Data {
		out.Data[i] = v * s
	}
	return out
}

// Add returns a + b with right-aligned broadcasting: trailing dimensions
// must match or be 1. Incompatible shapes are an error, never silently
// corrected.
func Add(a, b *Tensor) (*Tensor, error) {
	shape, err := broadcastShape(a.Shape, b.Shape)
	if err != nil {
		return nil, fmt.Errorf("tensor: cannot add shapes %v and %v: %w", a.Shape, b.Shape, err)
	}

	result := New(shape...)
	idx := make([]int, len(shape))
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(shape) {
			result.Data[result.flatIndex(idx)] = a.Data[broadcastIndex(a, idx)] + b.Data[broadcastIndex(b, idx)]
			return
		}
		for i := 0; i < shape[dim]; i++ {
			idx[dim] = i
			walk(dim + 1)
		}
	}
	walk(0)
	return result, nil
}

// broadcastShape computes the right-aligned broadcast of two shapes.
func broadcastShape(a, b []int) ([]int, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		da, db := 1, 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		if i < len(b) {
			db = b[len(b)-1-i]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
		case db == 1:
			out[n-1-i] = da
		default:
			return nil, fmt.Errorf("dimensions %d and %d are incompatible", da, db)
		}
	}
	return out, nil
}

// broadcastIndex maps an output index to t's flat index under right-aligned
// broadcasting. t's shape must be broadcast-compatible with the output.
func broadcastIndex(t *Tensor, outIdx []int) int {
	offset := len(outIdx) - t.Rank()
	flat := 0
	for i := 0; i < t.Rank(); i++ {
		v := outIdx[i+offset]
		if t.Shape[i] == 1 {
			v = 0
		}
		flat += v * t.Strides[i]
	}
	return flat
}

// Matmul multiplies over the last two dimensions. Supported operand ranks:
// 2D x 2D, nD x 2D (the right matrix applied to every leading slice),
// 2D x 3D, and equal-rank batched with matching leading dimensions.
// The per-slab multiply runs on gonum.
func Matmul(a, b *Tensor) (*Tensor, error) {
	if a.Rank() < 2 || b.Rank() < 2 {
		return nil, fmt.Errorf("tensor: matmul needs rank >= 2 operands, got %d and %d", a.Rank(), b.Rank())
	}

	k := a.Shape[a.Rank()-1]
	if b.Shape[b.Rank()-2] != k {
		return nil, fmt.Errorf("tensor: matmul inner dimensions differ: %v x %v", a.Shape, b.Shape)
	}

	switch {
	case b.Rank() == 2:
		// Collapse a's leading dims into one tall matrix.
		m := len(a.Data) / k
		p := b.Shape[1]
		outShape := append([]int(nil), a.Shape[:a.Rank()-1]...)
		outShape = append(outShape, p)
		result := New(outShape...)
		mulSlab(result.Data, a.Data, b.Data, m, k, p)
		return result, nil

	case a.Rank() == 2 && b.Rank() == 3:
		m := a.Shape[0]
		batch, p := b.Shape[0], b.Shape[2]
		result := New(batch, m, p)
		for i := 0; i < batch; i++ {
			mulSlab(result.Data[i*m*p:(i+1)*m*p], a.Data, b.Data[i*k*p:(i+1)*k*p], m, k, p)
		}
		return result, nil

	case a.Rank() == b.Rank():
		for i := 0; i < a.Rank()-2; i++ {
			if a.Shape[i] != b.Shape[i] {
				return nil, fmt.Errorf("tensor: matmul batch dimensions differ: %v x %v", a.Shape, b.Shape)
			}
		}
		m, p := a.Shape[a.Rank()-2], b.Shape[b.Rank()-1]
		batch := shapeSize(a.Shape[:a.Rank()-2])
		outShape := append([]int(nil), a.Shape[:a.Rank()-2]...)
		outShape = append(outShape, m, p)
		result := New(outShape...)
		for i := 0; i < batch; i++ {
			mulSlab(result.Data[i*m*p:(i+1)*m*p],
				a.Data[i*m*k:(i+1)*m*k],
				b.Data[i*k*p:(i+1)*k*p], m, k, p)
		}
		return result, nil
	}

	return nil, fmt.Errorf("tensor: unsupported matmul ranks %d and %d", a.Rank(), b.Rank())
}

// mulSlab computes dst = a x b for row-major slabs of the given dimensions,
// delegating to gonum's dense multiply.
func mulSlab(dst, a, b []float64, m, k, p int) {
	out := mat.NewDense(m, p, dst)
	out.Mul(mat.NewDense(m, k, a), mat.NewDense(k, p, b))
}

// Softmax normalizes along dim so each slice sums to 1, using the usual
// max-subtraction for stability.
func Softmax(t *Tensor, dim int) (*Tensor, error) {
	if dim < 0 || dim >= t.Rank() {
		return nil, fmt.Errorf("tensor: softmax dim %d out of range for rank %d", dim, t.Rank())
	}

	result := New(t.Shape...)
	n := t.Shape[dim]
	inner := t.Strides[dim]
	outer := len(t.Data) / (n * inner)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*n*inner + in

			maxVal := math.Inf(-1)
			for i := 0; i < n; i++ {
				if v := t.Data[base+i*inner]; v > maxVal {
					maxVal = v
				}
			}

			sum := 0.0
			for i := 0; i < n; i++ {
				e := math.Exp(t.Data[base+i*inner] - maxVal)
				result.Data[base+i*inner] = e
				sum += e
			}
			for i := 0; i < n; i++ {
				result.Data[base+i*inner] /= sum
			}
		}
	}
	return result, nil
}

// SoftmaxLast applies softmax along the last dimension.
func (t *Tensor) SoftmaxLast() *Tensor {
	result, err := Softmax(t, t.Rank()-1)
	if err != nil {
		panic(err)
	}
	return result
}

// MaskedFill overwrites, in place, every element of t whose corresponding
// mask entry is 0 with value. The mask broadcasts right-aligned: its rank
// may be lower than t's, and each aligned dimension must equal t's or be 1.
//
// This is the one sanctioned in-place mutation in the package. It is meant
// for freshly computed attention-score tensors immediately before softmax
// and must never be applied to an input owned by a caller.
func (t *Tensor) MaskedFill(mask *Tensor, value float64) error {
	if mask.Rank() > t.Rank() {
		return fmt.Errorf("tensor: mask rank %d exceeds tensor rank %d", mask.Rank(), t.Rank())
	}
	offset := t.Rank() - mask.Rank()
	for i := 0; i < mask.Rank(); i++ {
		if mask.Shape[i] != t.Shape[i+offset] && mask.Shape[i] != 1 {
			return fmt.Errorf("tensor: mask shape %v does not broadcast over %v", mask.Shape, t.Shape)
		}
	}

	idx := make([]int, t.Rank())
	var walk func(dim int)
	walk = func(dim int) {
		if dim == t.Rank() {
			if mask.Data[broadcastIndex(mask, idx)] == 0 {
				t.Data[t.flatIndex(idx)] = value
			}
			return
		}
		for i := 0; i < t.Shape[dim]; i++ {
			idx[dim] = i
			walk(dim + 1)
		}
	}
	walk(0)
	return nil
}
