package model

import (
	"math"
	"testing"

	"goformer/pkg/tensor"
)

func TestNewLayerNorm_Initialization(t *testing.T) {
	ln := NewLayerNorm(8, 1e-6)

	for i, v := range ln.Alpha.Data {
		if v != 1 {
			t.Errorf("Alpha[%d] = %v, expected 1", i, v)
		}
	}
	for i, v := range ln.Bias.Data {
		if v != 0 {
			t.Errorf("Bias[%d] = %v, expected 0", i, v)
		}
	}
}

func TestLayerNorm_HandComputed(t *testing.T) {
	ln := NewLayerNorm(4, 1e-6)

	x, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, 1, 1, 4)

	out, err := ln.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	// mean = 2.5, sample variance = 5/3, std = 1.2909944.
	// (1 - 2.5) / (std + eps) = -1.1618944.
	expected := []float64{-1.1618944, -0.3872981, 0.3872981, 1.1618944}
	for i, want := range expected {
		if math.Abs(out.Data[i]-want) > 1e-5 {
			t.Errorf("out[%d] = %v, expected %v", i, out.Data[i], want)
		}
	}
}

func TestLayerNorm_NormalizesMeanAndStd(t *testing.T) {
	d := 16
	ln := NewLayerNorm(d, 1e-6)

	// Non-degenerate input with large offset and spread.
	x := tensor.New(2, 3, d)
	for i := range x.Data {
		x.Data[i] = float64(i%13)*7 + 100
	}

	out, err := ln.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	for slice := 0; slice < 6; slice++ {
		offset := slice * d

		mean := 0.0
		for i := 0; i < d; i++ {
			mean += out.Data[offset+i]
		}
		mean /= float64(d)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("slice %d mean = %v, expected ~0", slice, mean)
		}

		variance := 0.0
		for i := 0; i < d; i++ {
			diff := out.Data[offset+i] - mean
			variance += diff * diff
		}
		variance /= float64(d - 1)
		if std := math.Sqrt(variance); math.Abs(std-1) > 1e-4 {
			t.Errorf("slice %d std = %v, expected ~1", slice, std)
		}
	}
}

func TestLayerNorm_AlphaAndBiasApplied(t *testing.T) {
	ln := NewLayerNorm(4, 1e-6)
	for i := range ln.Alpha.Data {
		ln.Alpha.Data[i] = 2
		ln.Bias.Data[i] = 3
	}

	x, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, 1, 4)

	out, err := ln.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	// Affine transform of the hand-computed normalized values.
	expected := []float64{2*-1.1618944 + 3, 2*-0.3872981 + 3, 2*0.3872981 + 3, 2*1.1618944 + 3}
	for i, want := range expected {
		if math.Abs(out.Data[i]-want) > 1e-5 {
			t.Errorf("out[%d] = %v, expected %v", i, out.Data[i], want)
		}
	}
}

func TestLayerNorm_DimensionMismatch(t *testing.T) {
	ln := NewLayerNorm(4, 1e-6)
	if _, err := ln.Forward(tensor.New(2, 5)); err == nil {
		t.Error("expected error for feature dimension 5 against layer dimension 4")
	}
}
