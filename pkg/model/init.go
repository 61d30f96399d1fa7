package model

import (
	"math"

	"golang.org/x/exp/rand"

	"goformer/pkg/tensor"
)

// XavierUniform fills t with samples from U[-limit, limit] where
// limit = sqrt(6 / (fan_in + fan_out)) over the last two dimensions.
// 1D tensors fall back to U[-1, 1].
func XavierUniform(t *tensor.Tensor, rng *rand.Rand) {
	if t.Rank() < 2 {
		for i := range t.Data {
			t.Data[i] = rng.Float64()*2 - 1
		}
		return
	}

	fanIn := t.Shape[t.Rank()-2]
	fanOut := t.Shape[t.Rank()-1]
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range t.Data {
		t.Data[i] = rng.Float64()*2*limit - limit
	}
}

// Normal fills t with samples from N(0, std^2).
func Normal(t *tensor.Tensor, std float64, rng *rand.Rand) {
	for i := range t.Data {
		t.Data[i] = rng.NormFloat64() * std
	}
}

// initialize applies the default policy to every learned parameter. Layer
// norm parameters keep their ones/zeros construction values; biases stay
// zero.
func (m *EncoderModel) initialize() {
	Normal(m.Embed.Table, 0.02, m.rng)

	for _, layer := range m.Encoder.Layers {
		XavierUniform(layer.SelfAttn.WQuery.Weight, m.rng)
		XavierUniform(layer.SelfAttn.WKey.Weight, m.rng)
		XavierUniform(layer.SelfAttn.WValue.Weight, m.rng)
		XavierUniform(layer.SelfAttn.WOut.Weight, m.rng)
		XavierUniform(layer.FF.W1.Weight, m.rng)
		XavierUniform(layer.FF.W2.Weight, m.rng)
	}
}
