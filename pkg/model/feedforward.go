package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// FeedForward is the position-wise two-layer network applied after
// attention in each encoder layer:
//
//	out = dropout(relu(x*W1 + b1)) * W2 + b2
//
// W1 expands d_model to d_ff and W2 projects back; each sequence position
// is transformed independently, with no masking involved.
type FeedForward struct {
	W1      *Linear // (d_model, d_ff)
	W2      *Linear // (d_ff, d_model)
	Dropout float64
}

// NewFeedForward creates a feed-forward layer with the given dimensions.
func NewFeedForward(dModel, dFF int, dropout float64) *FeedForward {
	return &FeedForward{
		W1:      NewLinear(dModel, dFF),
		W2:      NewLinear(dFF, dModel),
		Dropout: dropout,
	}
}

// Forward applies the transformation to a (batch, seq, d_model) tensor.
func (ff *FeedForward) Forward(x *tensor.Tensor, training bool, rng *rand.Rand) (*tensor.Tensor, error) {
	hidden, err := ff.W1.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("feedforward: first projection: %w", err)
	}

	hidden = hidden.ReLU().Dropout(ff.Dropout, training, rng)

	out, err := ff.W2.Forward(hidden)
	if err != nil {
		return nil, fmt.Errorf("feedforward: second projection: %w", err)
	}
	return out, nil
}
