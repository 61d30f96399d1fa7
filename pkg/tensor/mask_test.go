package tensor

import "testing"

func TestCausalMask(t *testing.T) {
	mask := CausalMask(4)

	if mask.Shape[0] != 4 || mask.Shape[1] != 4 {
		t.Fatalf("mask shape = %v, expected [4 4]", mask.Shape)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if j <= i {
				want = 1
			}
			if mask.At(i, j) != want {
				t.Errorf("mask(%d,%d) = %v, expected %v", i, j, mask.At(i, j), want)
			}
		}
	}
}

func TestPaddingMask(t *testing.T) {
	mask := PaddingMask([]int{2, 4}, 4)

	wantShape := []int{2, 1, 1, 4}
	for i, w := range wantShape {
		if mask.Shape[i] != w {
			t.Fatalf("mask shape = %v, expected %v", mask.Shape, wantShape)
		}
	}

	// First sequence has real length 2: positions 2 and 3 hidden.
	for j := 0; j < 4; j++ {
		want := 0.0
		if j < 2 {
			want = 1
		}
		if mask.At(0, 0, 0, j) != want {
			t.Errorf("batch 0 position %d = %v, expected %v", j, mask.At(0, 0, 0, j), want)
		}
		if mask.At(1, 0, 0, j) != 1 {
			t.Errorf("batch 1 position %d = %v, expected 1", j, mask.At(1, 0, 0, j))
		}
	}
}

func TestPaddingMask_LengthClamped(t *testing.T) {
	mask := PaddingMask([]int{10}, 3)
	for j := 0; j < 3; j++ {
		if mask.At(0, 0, 0, j) != 1 {
			t.Errorf("position %d = %v, expected 1", j, mask.At(0, 0, 0, j))
		}
	}
}
