package model

import (
	"testing"

	"goformer/pkg/tensor"
)

func TestEncoderModel_ForwardShape(t *testing.T) {
	m := NewEncoderModel(testConfig(), 42)

	ids, _ := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4)

	out, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	wantShape := []int{2, 4, m.Config.DModel}
	for i, w := range wantShape {
		if out.Shape[i] != w {
			t.Fatalf("output shape = %v, expected %v", out.Shape, wantShape)
		}
	}
}

func TestEncoderModel_EvaluationDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Dropout = 0.1 // dropout configured but inert in evaluation mode
	m := NewEncoderModel(cfg, 42)

	ids, _ := tensor.FromSlice([]float64{3, 1, 4, 1}, 1, 4)

	a, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("first Forward failed: %v", err)
	}
	b, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("second Forward failed: %v", err)
	}

	if !a.AllClose(b, 0) {
		t.Error("evaluation-mode forward passes should be bit-identical")
	}
}

func TestEncoderModel_TrainingDropoutVaries(t *testing.T) {
	cfg := testConfig()
	cfg.Dropout = 0.5
	m := NewEncoderModel(cfg, 42)
	m.SetTraining(true)

	ids, _ := tensor.FromSlice([]float64{3, 1, 4, 1}, 1, 4)

	a, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("first Forward failed: %v", err)
	}
	b, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("second Forward failed: %v", err)
	}

	if a.AllClose(b, 0) {
		t.Error("training-mode passes with advancing rng should differ")
	}
}

func TestEncoderModel_SeedReproducesTrainingRun(t *testing.T) {
	cfg := testConfig()
	cfg.Dropout = 0.5
	m := NewEncoderModel(cfg, 42)
	m.SetTraining(true)

	ids, _ := tensor.FromSlice([]float64{3, 1, 4, 1}, 1, 4)

	m.Seed(99)
	a, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	m.Seed(99)
	b, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if !a.AllClose(b, 0) {
		t.Error("reseeding should reproduce the training-mode pass exactly")
	}
}

func TestEncoderModel_WithPaddingMask(t *testing.T) {
	m := NewEncoderModel(testConfig(), 42)

	ids, _ := tensor.FromSlice([]float64{5, 6, 0, 0}, 1, 4)
	mask := tensor.PaddingMask([]int{2}, 4)

	out, err := m.Forward(ids, mask)
	if err != nil {
		t.Fatalf("Forward with padding mask failed: %v", err)
	}
	if out.Shape[1] != 4 {
		t.Errorf("sequence dimension = %d, expected 4", out.Shape[1])
	}
}

func TestNewEncoderModel_InvalidConfigPanics(t *testing.T) {
	cfg := testConfig()
	cfg.NumHeads = 3 // does not divide DModel=8

	defer func() {
		if recover() == nil {
			t.Error("expected panic constructing a model from an invalid config")
		}
	}()
	NewEncoderModel(cfg, 42)
}

func TestEncoderModel_InitializedParameters(t *testing.T) {
	m := NewEncoderModel(testConfig(), 42)

	nonZero := 0
	for _, v := range m.Embed.Table.Data {
		if v != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("embedding table should be initialized, found all zeros")
	}

	w := m.Encoder.Layers[0].SelfAttn.WQuery.Weight
	nonZero = 0
	for _, v := range w.Data {
		if v != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("attention weights should be initialized, found all zeros")
	}
}
