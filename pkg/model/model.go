package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// EncoderModel ties the full forward path together: token ids through the
// scaled embedding, the sinusoidal positional encoding, and the encoder
// stack.
//
// Parameters are read-only during Forward. The external training step that
// updates them must not run concurrently with an in-flight pass over the
// same model.
type EncoderModel struct {
	Config  Config
	Embed   *Embedding
	Pos     *PositionalEncoder
	Encoder *Encoder

	// Training selects dropout behavior: active when true, identity when
	// false (evaluation mode).
	Training bool

	rng *rand.Rand
}

// NewEncoderModel validates the configuration, builds every component, and
// applies the default initialization policy (embeddings from a scaled
// normal, projections Xavier-uniform) with the given seed. A training
// collaborator may overwrite any parameter afterwards.
func NewEncoderModel(cfg Config, seed uint64) *EncoderModel {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("model: invalid config: %v", err))
	}

	m := &EncoderModel{
		Config:   cfg,
		Embed:    NewEmbedding(cfg.VocabSize, cfg.DModel),
		Pos:      NewPositionalEncoder(cfg.DModel, cfg.MaxSeqLen, cfg.Dropout),
		Encoder:  NewEncoder(cfg),
		Training: false,
		rng:      rand.New(rand.NewSource(seed)),
	}
	m.initialize()
	return m
}

// SetTraining switches between training mode (dropout active) and
// evaluation mode (dropout is the identity).
func (m *EncoderModel) SetTraining(training bool) {
	m.Training = training
}

// Seed reseeds the generator driving dropout, making training-mode runs
// reproducible.
func (m *EncoderModel) Seed(seed uint64) {
	m.rng = rand.New(rand.NewSource(seed))
}

// Forward encodes a (batch, seq) tensor of token ids into (batch, seq,
// d_model) representations. mask is optional; see MultiHeadAttention for
// its shape and semantics.
func (m *EncoderModel) Forward(ids, mask *tensor.Tensor) (*tensor.Tensor, error) {
	x, err := m.Embed.Forward(ids)
	if err != nil {
		return nil, fmt.Errorf("model: embedding: %w", err)
	}

	x, err = m.Pos.Forward(x, m.Training, m.rng)
	if err != nil {
		return nil, fmt.Errorf("model: positional encoding: %w", err)
	}

	out, err := m.Encoder.Forward(x, mask, m.Training, m.rng)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	return out, nil
}
