package timestamp

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestAnalyze(t *testing.T) {
	sec := uint64(TicksPerSecond)

	tests := []struct {
		name    string
		ts      []uint64
		order   Order
		min     uint64
		max     uint64
		hasRate bool
		rate    float64
	}{
		{"empty", nil, NoTimestamps, 0, 0, false, 0},
		{"single", []uint64{5}, AllIdentical, 5, 5, false, 0},
		{"identical", []uint64{10, 10, 10}, AllIdentical, 10, 10, false, 0},
		{"out of order", []uint64{10, 20, 15}, OutOfOrder, 10, 20, true, 0},
		{"monotonic", []uint64{10 * sec, 20 * sec, 30 * sec}, Monotonic, 10 * sec, 30 * sec, true, 0.1},
		{"non-decreasing", []uint64{1, 1, 2}, Monotonic, 1, 2, true, 2 * float64(TicksPerSecond)},
		{"out of order min in middle", []uint64{30, 5, 40, 20}, OutOfOrder, 5, 40, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Analyze(tt.ts)
			if r.Order != tt.order {
				t.Errorf("Order = %v, want %v", r.Order, tt.order)
			}
			if r.Min != tt.min || r.Max != tt.max {
				t.Errorf("Min/Max = %d/%d, want %d/%d", r.Min, r.Max, tt.min, tt.max)
			}
			if r.HasRate != tt.hasRate {
				t.Errorf("HasRate = %v, want %v", r.HasRate, tt.hasRate)
			}
			if tt.rate != 0 && math.Abs(r.FrameRate-tt.rate) > 1e-9 {
				t.Errorf("FrameRate = %v, want %v", r.FrameRate, tt.rate)
			}
		})
	}
}

func TestAnalyzeSpan(t *testing.T) {
	r := Analyze([]uint64{0, 2 * TicksPerSecond})
	if r.Span() != 2*time.Second {
		t.Errorf("Span() = %v, want 2s", r.Span())
	}

	r = Analyze([]uint64{0, math.MaxUint64})
	if r.Span() != time.Duration(math.MaxInt64) {
		t.Errorf("huge span should saturate, got %v", r.Span())
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		ticks uint64
		want  Breakdown
	}{
		{"seconds", 5_500_0000, Breakdown{Seconds: 5.5, Granularity: UnitSeconds}},
		{"minutes", (2*60 + 3) * TicksPerSecond, Breakdown{Minutes: 2, Seconds: 3, Granularity: UnitMinutes}},
		{"hours", (3600 + 60) * TicksPerSecond, Breakdown{Hours: 1, Minutes: 1, Granularity: UnitHours}},
		{"days", (2*86400 + 5*3600) * TicksPerSecond, Breakdown{Days: 2, Hours: 5, Granularity: UnitDays}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Split(tt.ticks); got != tt.want {
				t.Errorf("Split(%d) = %+v, want %+v", tt.ticks, got, tt.want)
			}
		})
	}
}

func TestBreakdownString(t *testing.T) {
	b := Split((2*60 + 5) * TicksPerSecond)
	if got := b.String(); got != "2 min 5.000 s" {
		t.Errorf("String() = %q", got)
	}
}

func TestTicksTimeConversion(t *testing.T) {
	want := time.Date(2024, 3, 9, 21, 15, 30, 123_456_700, time.UTC)
	ticks := TimeToTicks(want)
	if got := TicksToTime(ticks); !got.Equal(want) {
		t.Errorf("TicksToTime(TimeToTicks(t)) = %v, want %v", got, want)
	}
	if got := TicksToTime(unixEpochTicks); !got.Equal(time.Unix(0, 0)) {
		t.Errorf("epoch = %v", got)
	}
	if TimeToTicks(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)) != 0 {
		t.Error("year 1 should be tick 0")
	}
	if got := FormatTime(ticks); got != "09/03/2024 21:15:30.123" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestDetectBase(t *testing.T) {
	hour := int64(3600 * TicksPerSecond)
	utc := int64(638_000_000_000_000_000)
	local := utc + 2*hour

	b := DetectBase(local, utc, uint64(utc+10))
	if !b.UTC || b.Correction != 0 {
		t.Errorf("UTC timestamps detected as %+v", b)
	}
	if b.Offset != -2*hour {
		t.Errorf("Offset = %d, want %d", b.Offset, -2*hour)
	}

	b = DetectBase(local, utc, uint64(local+10))
	if b.UTC {
		t.Error("local timestamps detected as UTC")
	}
	if got := b.ToUTC(uint64(local + 10)); got != uint64(utc+10) {
		t.Errorf("ToUTC = %d, want %d", got, utc+10)
	}
}

func TestReportLines(t *testing.T) {
	if lines := Analyze(nil).Lines(Base{UTC: true}); len(lines) != 1 {
		t.Errorf("no-timestamp report has %d lines", len(lines))
	}

	r := Analyze([]uint64{unixEpochTicks, unixEpochTicks + 10*TicksPerSecond})
	lines := r.Lines(Base{UTC: true})
	if len(lines) != 5 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "01/01/1970 00:00:00.000") {
		t.Errorf("min line = %q", lines[1])
	}
	if !strings.Contains(lines[4], "0.100") {
		t.Errorf("rate line = %q", lines[4])
	}
}
