package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// PositionalEncoder adds the fixed sinusoidal position signal to token
// embeddings. The table is computed once at construction, is not learned,
// and is shared read-only across batches and forward calls.
//
// For position pos and feature-pair index i (0 <= i < d_model/2):
//
//	table[pos, 2i]   = sin(pos / 10000^(2i/d_model))
//	table[pos, 2i+1] = cos(pos / 10000^(2i/d_model))
type PositionalEncoder struct {
	Table     *tensor.Tensor // (max_seq_len, d_model), immutable
	DModel    int
	MaxSeqLen int
	Dropout   float64
}

// NewPositionalEncoder precomputes the sinusoidal table for maxSeqLen
// positions. dModel must be even and both dimensions positive.
func NewPositionalEncoder(dModel, maxSeqLen int, dropout float64) *PositionalEncoder {
	if dModel <= 0 || dModel%2 != 0 {
		panic(fmt.Sprintf("model: positional encoding needs a positive even d_model, got %d", dModel))
	}
	if maxSeqLen <= 0 {
		panic(fmt.Sprintf("model: max_seq_len must be positive, got %d", maxSeqLen))
	}

	table := tensor.New(maxSeqLen, dModel)
	for pos := 0; pos < maxSeqLen; pos++ {
		for i := 0; i < dModel/2; i++ {
			freq := math.Pow(10000, float64(2*i)/float64(dModel))
			angle := float64(pos) / freq
			table.Data[pos*dModel+2*i] = math.Sin(angle)
			table.Data[pos*dModel+2*i+1] = math.Cos(angle)
		}
	}

	return &PositionalEncoder{
		Table:     table,
		DModel:    dModel,
		MaxSeqLen: maxSeqLen,
		Dropout:   dropout,
	}
}

// Forward returns dropout(x + table[0:seq]) with the table broadcast over
// the batch dimension. A sequence longer than the precomputed table is a
// caller bug and panics; the table is never extended at call time.
func (p *PositionalEncoder) Forward(x *tensor.Tensor, training bool, rng *rand.Rand) (*tensor.Tensor, error) {
	if x.Rank() != 3 {
		return nil, fmt.Errorf("positional: expected (batch, seq, d_model) input, got rank %d", x.Rank())
	}
	if x.Shape[2] != p.DModel {
		return nil, fmt.Errorf("positional: input feature dimension %d does not match d_model %d",
			x.Shape[2], p.DModel)
	}

	seq := x.Shape[1]
	if seq > p.MaxSeqLen {
		panic(fmt.Sprintf("positional: sequence length %d exceeds precomputed table length %d",
			seq, p.MaxSeqLen))
	}

	rows, err := p.Table.Rows(seq)
	if err != nil {
		return nil, fmt.Errorf("positional: %w", err)
	}
	sum, err := tensor.Add(x, rows)
	if err != nil {
		return nil, fmt.Errorf("positional: %w", err)
	}
	return sum.Dropout(p.Dropout, training, rng), nil
}
