package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// maskFill is written into hidden score positions before softmax. Large
// enough that the masked entries round to zero probability.
const maskFill = -1e9

// MultiHeadAttention projects queries, keys, and values through four
// independent (d_model, d_model) linear layers, computes scaled dot-product
// attention in NumHeads parallel subspaces of dimension HeadDim, and
// recombines the heads through the output projection.
//
// The intermediate (batch, heads, seq, head_dim) layout never escapes
// Forward; inputs and outputs are always (batch, seq, d_model).
type MultiHeadAttention struct {
	DModel   int
	NumHeads int
	HeadDim  int
	Dropout  float64

	WQuery *Linear
	WKey   *Linear
	WValue *Linear
	WOut   *Linear

	// Probs holds the attention distribution of the most recent forward
	// pass, shape (batch, heads, seq_q, seq_k). It is captured after
	// softmax and before dropout, so inspection sees the true
	// distribution. It plays no further computational role.
	Probs *tensor.Tensor
}

// NewMultiHeadAttention creates an attention layer. A d_model that the head
// count does not divide, or non-positive parameters, are construction-time
// fatal errors.
func NewMultiHeadAttention(dModel, numHeads int, dropout float64) *MultiHeadAttention {
	if dModel <= 0 || numHeads <= 0 {
		panic(fmt.Sprintf("model: attention dimensions must be positive, got d_model=%d num_heads=%d",
			dModel, numHeads))
	}
	if dModel%numHeads != 0 {
		panic(fmt.Sprintf("model: d_model (%d) must be divisible by num_heads (%d)", dModel, numHeads))
	}

	return &MultiHeadAttention{
		DModel:   dModel,
		NumHeads: numHeads,
		HeadDim:  dModel / numHeads,
		Dropout:  dropout,
		WQuery:   NewLinear(dModel, dModel),
		WKey:     NewLinear(dModel, dModel),
		WValue:   NewLinear(dModel, dModel),
		WOut:     NewLinear(dModel, dModel),
	}
}

// splitHeads reshapes (batch, seq, d_model) into (batch, heads, seq,
// head_dim) so attention runs independently per (batch, head) pair.
func (a *MultiHeadAttention) splitHeads(x *tensor.Tensor) (*tensor.Tensor, error) {
	batch, seq := x.Shape[0], x.Shape[1]
	return x.Reshape(batch, seq, a.NumHeads, a.HeadDim).Transpose(1, 2)
}

// mergeHeads inverts splitHeads exactly: (batch, heads, seq, head_dim)
// back to (batch, seq, d_model).
func (a *MultiHeadAttention) mergeHeads(x *tensor.Tensor) (*tensor.Tensor, error) {
	batch, seq := x.Shape[0], x.Shape[2]
	merged, err := x.Transpose(1, 2)
	if err != nil {
		return nil, err
	}
	return merged.Reshape(batch, seq, a.DModel), nil
}

// Forward computes attention for (batch, seq, d_model) query, key, and
// value tensors. Key and value must share their sequence length; the query
// length may differ. mask is an optional 0/1 tensor broadcastable over the
// (batch, heads, seq_q, seq_k) scores, with 0 hiding a position; it is
// applied before softmax so hidden positions receive no probability mass.
func (a *MultiHeadAttention) Forward(query, key, value, mask *tensor.Tensor, training bool, rng *rand.Rand) (*tensor.Tensor, error) {
	for _, in := range []struct {
		name string
		t    *tensor.Tensor
	}{{"query", query}, {"key", key}, {"value", value}} {
		if in.t.Rank() != 3 {
			return nil, fmt.Errorf("attention: %s must be (batch, seq, d_model), got rank %d", in.name, in.t.Rank())
		}
		if in.t.Shape[2] != a.DModel {
			return nil, fmt.Errorf("attention: %s feature dimension %d does not match d_model %d",
				in.name, in.t.Shape[2], a.DModel)
		}
	}
	if key.Shape[0] != query.Shape[0] || value.Shape[0] != query.Shape[0] {
		return nil, fmt.Errorf("attention: batch sizes differ: query %d, key %d, value %d",
			query.Shape[0], key.Shape[0], value.Shape[0])
	}
	if key.Shape[1] != value.Shape[1] {
		return nil, fmt.Errorf("attention: key and value sequence lengths differ: %d vs %d",
			key.Shape[1], value.Shape[1])
	}

	q, err := a.WQuery.Forward(query)
	if err != nil {
		return nil, fmt.Errorf("attention: query projection: %w", err)
	}
	k, err := a.WKey.Forward(key)
	if err != nil {
		return nil, fmt.Errorf("attention: key projection: %w", err)
	}
	v, err := a.WValue.Forward(value)
	if err != nil {
		return nil, fmt.Errorf("attention: value projection: %w", err)
	}

	// Each projection is reshaped independently into head-major layout.
	if q, err = a.splitHeads(q); err != nil {
		return nil, fmt.Errorf("attention: split query heads: %w", err)
	}
	if k, err = a.splitHeads(k); err != nil {
		return nil, fmt.Errorf("attention: split key heads: %w", err)
	}
	if v, err = a.splitHeads(v); err != nil {
		return nil, fmt.Errorf("attention: split value heads: %w", err)
	}

	kt, err := k.Transpose(2, 3)
	if err != nil {
		return nil, fmt.Errorf("attention: transpose keys: %w", err)
	}
	scores, err := tensor.Matmul(q, kt)
	if err != nil {
		return nil, fmt.Errorf("attention: score matmul: %w", err)
	}
	scores = scores.Scale(1 / math.Sqrt(float64(a.HeadDim)))

	// Masking must precede softmax or hidden positions would keep
	// probability mass. scores is freshly allocated, so the in-place fill
	// touches no caller-owned tensor.
	if mask != nil {
		if err := scores.MaskedFill(mask, maskFill); err != nil {
			return nil, fmt.Errorf("attention: %w", err)
		}
	}

	probs := scores.SoftmaxLast()
	a.Probs = probs

	weighted, err := tensor.Matmul(probs.Dropout(a.Dropout, training, rng), v)
	if err != nil {
		return nil, fmt.Errorf("attention: weighted sum: %w", err)
	}

	merged, err := a.mergeHeads(weighted)
	if err != nil {
		return nil, fmt.Errorf("attention: merge heads: %w", err)
	}

	out, err := a.WOut.Forward(merged)
	if err != nil {
		return nil, fmt.Errorf("attention: output projection: %w", err)
	}
	return out, nil
}
