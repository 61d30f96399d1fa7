package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// EncoderLayer is one encoder block: self-attention and feed-forward, each
// wrapped in its own pre-norm residual connection. Self-attention uses the
// same tensor as query, key, and value.
type EncoderLayer struct {
	SelfAttn *MultiHeadAttention
	FF       *FeedForward
	Res1     *Residual // around self-attention
	Res2     *Residual // around feed-forward
}

// NewEncoderLayer builds a layer from the configuration. The configuration
// must already be validated.
func NewEncoderLayer(cfg Config) *EncoderLayer {
	return &EncoderLayer{
		SelfAttn: NewMultiHeadAttention(cfg.DModel, cfg.NumHeads, cfg.Dropout),
		FF:       NewFeedForward(cfg.DModel, cfg.DFF, cfg.Dropout),
		Res1:     NewResidual(cfg.DModel, cfg.Dropout, cfg.Eps),
		Res2:     NewResidual(cfg.DModel, cfg.Dropout, cfg.Eps),
	}
}

// Forward runs one block over a (batch, seq, d_model) tensor with an
// optional attention mask.
func (l *EncoderLayer) Forward(x, mask *tensor.Tensor, training bool, rng *rand.Rand) (*tensor.Tensor, error) {
	x, err := l.Res1.Forward(x, func(y *tensor.Tensor) (*tensor.Tensor, error) {
		return l.SelfAttn.Forward(y, y, y, mask, training, rng)
	}, training, rng)
	if err != nil {
		return nil, fmt.Errorf("encoder layer: attention: %w", err)
	}

	x, err = l.Res2.Forward(x, func(y *tensor.Tensor) (*tensor.Tensor, error) {
		return l.FF.Forward(y, training, rng)
	}, training, rng)
	if err != nil {
		return nil, fmt.Errorf("encoder layer: feed-forward: %w", err)
	}
	return x, nil
}

// Encoder stacks NumLayers encoder layers and closes the pre-norm stack
// with a final layer normalization.
type Encoder struct {
	Layers []*EncoderLayer
	Norm   *LayerNorm
}

// NewEncoder builds the layer stack from the configuration.
func NewEncoder(cfg Config) *Encoder {
	layers := make([]*EncoderLayer, cfg.NumLayers)
	for i := range layers {
		layers[i] = NewEncoderLayer(cfg)
	}
	return &Encoder{
		Layers: layers,
		Norm:   NewLayerNorm(cfg.DModel, cfg.Eps),
	}
}

// Forward passes x through every layer and the final norm.
func (e *Encoder) Forward(x, mask *tensor.Tensor, training bool, rng *rand.Rand) (*tensor.Tensor, error) {
	var err error
	for i, layer := range e.Layers {
		if x, err = layer.Forward(x, mask, training, rng); err != nil {
			return nil, fmt.Errorf("encoder: layer %d: %w", i, err)
		}
	}
	out, err := e.Norm.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("encoder: final norm: %w", err)
	}
	return out, nil
}
