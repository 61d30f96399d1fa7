package model

import (
	"fmt"
	"math"

	"goformer/pkg/tensor"
)

// Embedding maps token ids to dense vectors scaled by sqrt(d_model). The
// scaling keeps embedding magnitudes commensurate with the positional
// encoding added right after it.
type Embedding struct {
	// Table holds one (vocab_size, d_model) row per token id. It is read
	// during forward passes and mutated only by the training collaborator.
	Table  *tensor.Tensor
	DModel int

	scale float64
}

// NewEmbedding creates a zero-initialized embedding table.
func NewEmbedding(vocabSize, dModel int) *Embedding {
	if vocabSize <= 0 || dModel <= 0 {
		panic(fmt.Sprintf("model: embedding dimensions must be positive, got (%d, %d)", vocabSize, dModel))
	}
	return &Embedding{
		Table:  tensor.New(vocabSize, dModel),
		DModel: dModel,
		scale:  math.Sqrt(float64(dModel)),
	}
}

// Forward looks up each id in a (batch, seq) tensor and returns the scaled
// (batch, seq, d_model) embeddings. Ids are stored as float64 values that
// must be exact integers in [0, vocab_size); an out-of-range id is a caller
// bug and panics.
func (e *Embedding) Forward(ids *tensor.Tensor) (*tensor.Tensor, error) {
	if ids.Rank() != 2 {
		return nil, fmt.Errorf("embedding: expected (batch, seq) ids, got rank %d", ids.Rank())
	}

	batch, seq := ids.Shape[0], ids.Shape[1]
	vocab := e.Table.Shape[0]
	out := tensor.New(batch, seq, e.DModel)

	for b := 0; b < batch; b++ {
		for s := 0; s < seq; s++ {
			id := int(ids.At(b, s))
			if id < 0 || id >= vocab {
				panic(fmt.Sprintf("embedding: token id %d at (%d, %d) outside vocabulary of size %d",
					id, b, s, vocab))
			}
			src := id * e.DModel
			dst := (b*seq + s) * e.DModel
			for d := 0; d < e.DModel; d++ {
				out.Data[dst+d] = e.Table.Data[src+d] * e.scale
			}
		}
	}
	return out, nil
}
