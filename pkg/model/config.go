// Package model implements the forward pass of a Transformer encoder:
// scaled token embedding, sinusoidal positional encoding, multi-head
// self-attention, position-wise feed-forward layers, and pre-norm residual
// composition.
//
// Every component reads its learned parameters and writes nothing: training
// and parameter updates belong to an external collaborator, which must not
// run concurrently with a forward pass over the same parameters.
package model

import "fmt"

// Config holds the encoder hyperparameters.
type Config struct {
	// VocabSize is the number of distinct token ids.
	VocabSize int

	// MaxSeqLen bounds the sequence length; the positional table is
	// precomputed to this many positions and never extended at call time.
	MaxSeqLen int

	// DModel is the feature dimensionality carried through the block.
	DModel int

	// NumHeads is the number of attention heads; it must divide DModel.
	NumHeads int

	// NumLayers is the number of stacked encoder layers.
	NumLayers int

	// DFF is the feed-forward hidden dimension, independent of DModel.
	DFF int

	// Dropout is the rate shared by all dropout sites.
	Dropout float64

	// Eps is the layer-norm stabilizer, added to the standard deviation.
	Eps float64
}

// DefaultConfig returns the base encoder configuration.
func DefaultConfig() Config {
	return Config{
		VocabSize: 32000,
		MaxSeqLen: 512,
		DModel:    512,
		NumHeads:  8,
		NumLayers: 6,
		DFF:       2048,
		Dropout:   0.1,
		Eps:       1e-6,
	}
}

// Validate reports the first invalid or inconsistent parameter. A Config
// that fails validation must not be used to construct components.
func (c Config) Validate() error {
	if c.VocabSize <= 0 {
		return fmt.Errorf("vocab_size must be positive, got %d", c.VocabSize)
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("max_seq_len must be positive, got %d", c.MaxSeqLen)
	}
	if c.DModel <= 0 {
		return fmt.Errorf("d_model must be positive, got %d", c.DModel)
	}
	if c.DModel%2 != 0 {
		return fmt.Errorf("d_model must be even for sinusoidal encoding, got %d", c.DModel)
	}
	if c.NumHeads <= 0 {
		return fmt.Errorf("num_heads must be positive, got %d", c.NumHeads)
	}
	if c.DModel%c.NumHeads != 0 {
		return fmt.Errorf("d_model (%d) must be divisible by num_heads (%d)", c.DModel, c.NumHeads)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("num_layers must be positive, got %d", c.NumLayers)
	}
	if c.DFF <= 0 {
		return fmt.Errorf("d_ff must be positive, got %d", c.DFF)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}
	if c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %g", c.Eps)
	}
	return nil
}

// HeadDim returns the per-head dimension d_k = d_model / num_heads.
func (c Config) HeadDim() int {
	return c.DModel / c.NumHeads
}
