package tensor

import (
	"time"

	"golang.org/x/exp/rand"
)

// fallbackRand serves callers that do not supply their own generator.
var fallbackRand = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))

// SetDropoutSeed reseeds the fallback generator. Tests use this to make
// dropout deterministic when no explicit generator is passed.
func SetDropoutSeed(seed uint64) {
	fallbackRand = rand.New(rand.NewSource(seed))
}

// Dropout applies inverted dropout: each element is zeroed with probability
// p and survivors are scaled by 1/(1-p), so the expected value is
// unchanged. In evaluation mode (training=false) or with p=0 the input is
// returned as an untouched copy.
//
// rng supplies the randomness; pass a seeded generator for deterministic
// runs, or nil to use the package fallback.
func (t *Tensor) Dropout(p float64, training bool, rng *rand.Rand) *Tensor {
	if !training || p == 0 {
		return t.Clone()
	}
	if p < 0 || p >= 1 {
		panic("tensor: dropout probability must be in [0, 1)")
	}
	if rng == nil {
		rng = fallbackRand
	}

	result := New(t.Shape...)
	scale := 1.0 / (1.0 - p)
	for i, v := range t.Data {
		if rng.Float64() >= p {
			result.Data[i] = v * scale
		}
	}
	return result
}
