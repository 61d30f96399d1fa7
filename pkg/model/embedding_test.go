package model

import (
	"math"
	"testing"

	"goformer/pkg/tensor"
)

func TestEmbedding_LookupAndScale(t *testing.T) {
	vocab, dModel := 5, 4
	emb := NewEmbedding(vocab, dModel)

	// Row i holds the constant value i+1.
	for id := 0; id < vocab; id++ {
		for d := 0; d < dModel; d++ {
			emb.Table.SetAt(float64(id+1), id, d)
		}
	}

	ids, _ := tensor.FromSlice([]float64{0, 2, 4, 1}, 2, 2)

	out, err := emb.Forward(ids)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	wantShape := []int{2, 2, dModel}
	for i, w := range wantShape {
		if out.Shape[i] != w {
			t.Fatalf("output shape = %v, expected %v", out.Shape, wantShape)
		}
	}

	scale := math.Sqrt(float64(dModel)) // sqrt(4) = 2
	checks := []struct {
		b, s int
		id   int
	}{{0, 0, 0}, {0, 1, 2}, {1, 0, 4}, {1, 1, 1}}
	for _, c := range checks {
		want := float64(c.id+1) * scale
		if got := out.At(c.b, c.s, 0); math.Abs(got-want) > 1e-12 {
			t.Errorf("embedding at (%d,%d) = %v, expected %v", c.b, c.s, got, want)
		}
	}
}

func TestEmbedding_OutOfRangeIDPanics(t *testing.T) {
	emb := NewEmbedding(3, 4)
	ids, _ := tensor.FromSlice([]float64{0, 3}, 1, 2)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for token id outside the vocabulary")
		}
	}()
	emb.Forward(ids)
}

func TestEmbedding_RejectsWrongRank(t *testing.T) {
	emb := NewEmbedding(3, 4)
	ids := tensor.New(2, 2, 2)
	if _, err := emb.Forward(ids); err == nil {
		t.Error("expected error for rank-3 id tensor")
	}
}
