package tensor

// Mask conventions: an entry of 1 allows attention between the query and
// key position it covers, an entry of 0 hides it. Masks broadcast over the
// batch and head axes of a (batch, heads, seq_q, seq_k) score tensor.

// CausalMask returns a (seqLen, seqLen) mask allowing each position to
// attend only to itself and earlier positions.
func CausalMask(seqLen int) *Tensor {
	mask := New(seqLen, seqLen)
	for i := 0; i < seqLen; i++ {
		for j := 0; j <= i; j++ {
			mask.Data[i*seqLen+j] = 1
		}
	}
	return mask
}

// PaddingMask returns a (batch, 1, 1, seqLen) mask hiding the key positions
// beyond each sequence's real length. lengths[b] is the unpadded length of
// batch element b.
func PaddingMask(lengths []int, seqLen int) *Tensor {
	mask := New(len(lengths), 1, 1, seqLen)
	for b, n := range lengths {
		if n > seqLen {
			n = seqLen
		}
		for j := 0; j < n; j++ {
			mask.Data[b*seqLen+j] = 1
		}
	}
	return mask
}
