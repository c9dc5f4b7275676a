package export

// Select returns the source frame indices of a run in output order.
// Forward-then-reverse appends the reversed sequence without repeating the
// turning frame, so [2,5,8] becomes [2,5,8,5,2].
func Select(start, end, step int, dir Direction) []int {
	if step < 1 || end < start {
		return nil
	}
	fwd := make([]int, 0, (end-start)/step+1)
	for i := start; i <= end; i += step {
		fwd = append(fwd, i)
	}

	switch dir {
	case Reverse:
		out := make([]int, len(fwd))
		for i, v := range fwd {
			out[len(fwd)-1-i] = v
		}
		return out
	case ForwardThenReverse:
		out := make([]int, 0, 2*len(fwd)-1)
		out = append(out, fwd...)
		for i := len(fwd) - 2; i >= 0; i-- {
			out = append(out, fwd[i])
		}
		return out
	}
	return fwd
}
