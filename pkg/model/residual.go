package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// Sublayer is any tensor-to-tensor transformation a residual connection
// can wrap: attention bound to its q/k/v/mask, or a feed-forward layer.
type Sublayer func(*tensor.Tensor) (*tensor.Tensor, error)

// Residual applies the pre-norm residual pattern around a sublayer:
//
//	out = x + dropout(sublayer(layernorm(x)))
//
// Normalization runs before the sublayer, not after. The ordering affects
// gradient flow through deep stacks and must not be swapped for the
// post-norm variant.
type Residual struct {
	Norm    *LayerNorm
	Dropout float64
}

// NewResidual creates a residual wrapper normalizing dModel features.
func NewResidual(dModel int, dropout, eps float64) *Residual {
	return &Residual{
		Norm:    NewLayerNorm(dModel, eps),
		Dropout: dropout,
	}
}

// Forward wraps sublayer around x. The sublayer's output must keep x's
// shape for the addition to be defined.
func (r *Residual) Forward(x *tensor.Tensor, sublayer Sublayer, training bool, rng *rand.Rand) (*tensor.Tensor, error) {
	normed, err := r.Norm.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("residual: %w", err)
	}

	out, err := sublayer(normed)
	if err != nil {
		return nil, fmt.Errorf("residual: sublayer: %w", err)
	}
	if !out.SameShape(x) {
		return nil, fmt.Errorf("residual: sublayer changed shape from %v to %v", x.Shape, out.Shape)
	}

	sum, err := tensor.Add(x, out.Dropout(r.Dropout, training, rng))
	if err != nil {
		return nil, fmt.Errorf("residual: %w", err)
	}
	return sum, nil
}
