package model

import (
	"fmt"

	"goformer/pkg/tensor"
)

// Linear is an affine projection x -> x*W + b. Weight is (in, out) and
// Bias is (out); both are learned parameters owned by the layer.
type Linear struct {
	Weight *tensor.Tensor
	Bias   *tensor.Tensor
}

// NewLinear creates a zero-initialized projection from in to out features.
func NewLinear(in, out int) *Linear {
	if in <= 0 || out <= 0 {
		panic(fmt.Sprintf("model: linear dimensions must be positive, got (%d, %d)", in, out))
	}
	return &Linear{
		Weight: tensor.New(in, out),
		Bias:   tensor.New(out),
	}
}

// Forward applies the projection to the last dimension of x, which must
// equal the weight's input dimension.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() < 2 {
		return nil, fmt.Errorf("linear: input must have rank >= 2, got %d", x.Rank())
	}
	if got, want := x.Shape[x.Rank()-1], l.Weight.Shape[0]; got != want {
		return nil, fmt.Errorf("linear: input feature dimension %d does not match weight input %d", got, want)
	}

	projected, err := tensor.Matmul(x, l.Weight)
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	out, err := tensor.Add(projected, l.Bias)
	if err != nil {
		return nil, fmt.Errorf("linear: bias add: %w", err)
	}
	return out, nil
}
