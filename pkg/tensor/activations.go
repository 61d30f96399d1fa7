package tensor

import "math"

// ReLU returns max(0, x) elementwise.
func (t *Tensor) ReLU() *Tensor {
	result := New(t.Shape...)
	for i, v := range t.Data {
		if v > 0 {
			result.Data[i] = v
		}
	}
	return result
}

// GELU applies the tanh approximation of the Gaussian Error Linear Unit:
//
//	GELU(x) = 0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 * x^3)))
func (t *Tensor) GELU() *Tensor {
	const (
		sqrt2OverPi = 0.7978845608028654
		coeff       = 0.044715
	)

	result := New(t.Shape...)
	for i, v := range t.Data {
		inner := v + coeff*v*v*v
		result.Data[i] = 0.5 * v * (1 + math.Tanh(sqrt2OverPi*inner))
	}
	return result
}
