package timestamp

// Base describes whether frame timestamps were recorded in UTC or in local
// time, as decided from the header start times.
type Base struct {
	UTC bool

	// Offset is the header's UTC minus local start time in ticks. Adding
	// Correction to a frame timestamp yields UTC.
	Offset     int64
	Correction int64
}

// DetectBase compares the header start times against the earliest frame
// timestamp. Whichever start time lies closer to it names the time base;
// ties go to UTC.
func DetectBase(local, utc int64, min uint64) Base {
	b := Base{Offset: utc - local}
	if absDiff(utc, min) <= absDiff(local, min) {
		b.UTC = true
		return b
	}
	b.Correction = b.Offset
	return b
}

// ToUTC applies the correction to a frame timestamp.
func (b Base) ToUTC(ts uint64) uint64 {
	if b.Correction < 0 && uint64(-b.Correction) > ts {
		return 0
	}
	return uint64(int64(ts) + b.Correction)
}

func absDiff(a int64, b uint64) uint64 {
	if a < 0 {
		return b + uint64(-a)
	}
	if uint64(a) >= b {
		return uint64(a) - b
	}
	return b - uint64(a)
}
