// Package timestamp analyzes the per-frame timestamps stored in SER
// containers: ordering, range, capture span and average frame rate.
//
// Timestamps are counted in 100 ns ticks since 0001-01-01 00:00:00.
package timestamp

import (
	"math"
	"time"
)

const (
	// TicksPerSecond is the number of timestamp ticks in one second.
	TicksPerSecond = 10_000_000

	// unixEpochTicks is the tick value of 1970-01-01 00:00:00 UTC.
	unixEpochTicks = 621_355_968_000_000_000
)

// Order classifies a timestamp sequence.
type Order int

const (
	NoTimestamps Order = iota
	AllIdentical
	Monotonic
	OutOfOrder
)

var orderNames = map[Order]string{
	NoTimestamps: "none",
	AllIdentical: "identical",
	Monotonic:    "in-order",
	OutOfOrder:   "out-of-order",
}

func (o Order) String() string {
	if s, ok := orderNames[o]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the order by name.
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Unit is the coarsest non-zero unit of a span breakdown.
type Unit int

const (
	UnitSeconds Unit = iota
	UnitMinutes
	UnitHours
	UnitDays
)

// Breakdown splits a span into whole days, hours and minutes plus the
// remaining seconds.
type Breakdown struct {
	Days        int64
	Hours       int
	Minutes     int
	Seconds     float64
	Granularity Unit
}

// Report is the result of Analyze.
type Report struct {
	Order     Order
	Count     int
	Min       uint64
	Max       uint64
	SpanTicks uint64
	Breakdown Breakdown

	// FrameRate is (Count-1)/span in frames per second. HasRate is false
	// when the span is zero or there are fewer than two timestamps.
	FrameRate float64
	HasRate   bool
}

// Span returns the min to max difference, saturated to the largest
// time.Duration.
func (r Report) Span() time.Duration {
	if r.SpanTicks > uint64(math.MaxInt64/100) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(r.SpanTicks * 100)
}

// Analyze classifies ts and derives its range, span and rate.
//
// For monotonic sequences min and max are the first and last values; other
// sequences are scanned in full.
func Analyze(ts []uint64) Report {
	r := Report{Count: len(ts)}
	if len(ts) == 0 {
		r.Order = NoTimestamps
		return r
	}

	identical := true
	ordered := true
	min, max := ts[0], ts[0]
	for i := 1; i < len(ts); i++ {
		v := ts[i]
		if v != ts[0] {
			identical = false
		}
		if v < ts[i-1] {
			ordered = false
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	switch {
	case identical:
		r.Order = AllIdentical
	case ordered:
		r.Order = Monotonic
		min, max = ts[0], ts[len(ts)-1]
	default:
		r.Order = OutOfOrder
	}

	r.Min = min
	r.Max = max
	r.SpanTicks = max - min
	r.Breakdown = Split(r.SpanTicks)

	if r.SpanTicks > 0 && len(ts) >= 2 {
		r.FrameRate = float64(len(ts)-1) * TicksPerSecond / float64(r.SpanTicks)
		r.HasRate = true
	}
	return r
}

// Split breaks a tick count into days, hours, minutes and seconds.
func Split(ticks uint64) Breakdown {
	const (
		minute = 60 * TicksPerSecond
		hour   = 60 * minute
		day    = 24 * hour
	)
	b := Breakdown{
		Days:    int64(ticks / day),
		Hours:   int(ticks % day / hour),
		Minutes: int(ticks % hour / minute),
		Seconds: float64(ticks%minute) / TicksPerSecond,
	}
	switch {
	case b.Days > 0:
		b.Granularity = UnitDays
	case b.Hours > 0:
		b.Granularity = UnitHours
	case b.Minutes > 0:
		b.Granularity = UnitMinutes
	default:
		b.Granularity = UnitSeconds
	}
	return b
}

// TicksToTime converts a tick count to a UTC time.
func TicksToTime(ticks uint64) time.Time {
	rel := int64(ticks) - unixEpochTicks
	if ticks > math.MaxInt64 {
		rel = math.MaxInt64 - unixEpochTicks
	}
	sec := rel / TicksPerSecond
	nsec := (rel % TicksPerSecond) * 100
	if nsec < 0 {
		sec--
		nsec += 1_000_000_000
	}
	return time.Unix(sec, nsec).UTC()
}

// TimeToTicks converts t to a tick count. Times before year 1 map to 0.
func TimeToTicks(t time.Time) uint64 {
	sec := t.Unix()
	ticks := sec*TicksPerSecond + int64(t.Nanosecond()/100) + unixEpochTicks
	if ticks < 0 {
		return 0
	}
	return uint64(ticks)
}
