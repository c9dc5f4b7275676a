package ser

// depthSamples is the number of frames inspected by DetectPixelDepth.
const depthSamples = 10

// DetectPixelDepth estimates the number of significant bits in 16-bit
// captures. Many cameras declare 16 bits while only filling 10, 12 or 14 of
// them, which makes the output look dark unless the data is rescaled.
//
// Up to ten evenly spaced frames are scanned for their largest sample; the
// result is the position of its highest set bit, never below 8. Files with
// 8-bit storage return their declared depth.
func DetectPixelDepth(c *Container) (int, error) {
	h := c.Header()
	if h.BytesPerSample() == 1 {
		return int(h.PixelDepth), nil
	}

	order := h.sampleOrder()
	count := c.FrameCount()
	var max uint16
	for _, idx := range sampleIndices(count) {
		f, err := c.ReadFrame(idx)
		if err != nil {
			return 0, err
		}
		for i := 0; i+1 < len(f.Data); i += 2 {
			if v := order.Uint16(f.Data[i:]); v > max {
				max = v
			}
		}
	}

	for bit := 15; bit >= 8; bit-- {
		if max&(1<<uint(bit)) != 0 {
			return bit + 1, nil
		}
	}
	return 8, nil
}

// sampleIndices returns the first frame, eight evenly spaced frames and the
// last frame, without duplicates.
func sampleIndices(count int) []int {
	if count <= 0 {
		return nil
	}
	if count <= depthSamples {
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, depthSamples)
	out = append(out, 0)
	for x := 1; x < depthSamples-1; x++ {
		out = append(out, count*x/(depthSamples-1))
	}
	out = append(out, count-1)
	return out
}
