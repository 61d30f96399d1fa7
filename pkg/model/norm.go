package model

import (
	"fmt"
	"math"

	"goformer/pkg/tensor"
)

// LayerNorm normalizes each innermost feature vector to zero mean and unit
// spread, then applies a learned per-feature scale (Alpha) and shift
// (Bias).
//
// The stabilizer eps is added to the standard deviation, not the variance:
//
//	out = alpha * (v - mean) / (std + eps) + bias
//
// where std is the sample standard deviation over the feature axis.
type LayerNorm struct {
	Alpha *tensor.Tensor // (d_model,), initialized to ones
	Bias  *tensor.Tensor // (d_model,), initialized to zeros
	Eps   float64
}

// NewLayerNorm creates a LayerNorm over dModel features.
func NewLayerNorm(dModel int, eps float64) *LayerNorm {
	if dModel <= 0 {
		panic(fmt.Sprintf("model: layer norm dimension must be positive, got %d", dModel))
	}
	alpha := tensor.New(dModel)
	for i := range alpha.Data {
		alpha.Data[i] = 1
	}
	return &LayerNorm{
		Alpha: alpha,
		Bias:  tensor.New(dModel),
		Eps:   eps,
	}
}

// Forward normalizes the last dimension of x, which must equal the layer's
// feature count. Works for any leading shape.
func (ln *LayerNorm) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() == 0 {
		return nil, fmt.Errorf("layernorm: cannot normalize a scalar")
	}
	d := x.Shape[x.Rank()-1]
	if d != len(ln.Alpha.Data) {
		return nil, fmt.Errorf("layernorm: input feature dimension %d does not match layer dimension %d",
			d, len(ln.Alpha.Data))
	}

	result := tensor.New(x.Shape...)
	slices := len(x.Data) / d

	for s := 0; s < slices; s++ {
		offset := s * d

		mean := 0.0
		for i := 0; i < d; i++ {
			mean += x.Data[offset+i]
		}
		mean /= float64(d)

		variance := 0.0
		for i := 0; i < d; i++ {
			diff := x.Data[offset+i] - mean
			variance += diff * diff
		}
		if d > 1 {
			variance /= float64(d - 1)
		}
		std := math.Sqrt(variance)

		for i := 0; i < d; i++ {
			normed := (x.Data[offset+i] - mean) / (std + ln.Eps)
			result.Data[offset+i] = normed*ln.Alpha.Data[i] + ln.Bias.Data[i]
		}
	}
	return result, nil
}
