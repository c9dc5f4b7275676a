package timestamp

import (
	"fmt"

	"github.com/ideamans/go-l10n"
)

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"No timestamps":                         "タイムスタンプなし",
		"Timestamps are all identical":          "タイムスタンプはすべて同一です",
		"Timestamps are all in order":           "タイムスタンプはすべて順序どおりです",
		"Out of order timestamps detected":      "順序が乱れたタイムスタンプを検出しました",
		"Min timestamp: %s UT":                  "最小タイムスタンプ: %s UT",
		"Max timestamp: %s UT":                  "最大タイムスタンプ: %s UT",
		"Min to max difference: %s":             "最小から最大までの差: %s",
		"%d days %d hours %d min %s s":          "%d 日 %d 時間 %d 分 %s 秒",
		"%d hours %d min %s s":                  "%d 時間 %d 分 %s 秒",
		"%d min %s s":                           "%d 分 %s 秒",
		"%s s":                                  "%s 秒",
		"Average frames per second: %s":         "平均フレームレート: %s fps",
		"Average frames per second: n/a":        "平均フレームレート: なし",
	})
}

// timeLayout renders timestamps as day/month/year with milliseconds.
const timeLayout = "02/01/2006 15:04:05.000"

// FormatTime renders a tick count as a UTC date and time.
func FormatTime(ticks uint64) string {
	return TicksToTime(ticks).Format(timeLayout)
}

// String renders the breakdown down to its granularity, e.g.
// "2 min 5.250 s".
func (b Breakdown) String() string {
	sec := fmt.Sprintf("%.3f", b.Seconds)
	switch b.Granularity {
	case UnitDays:
		return l10n.F("%d days %d hours %d min %s s", b.Days, b.Hours, b.Minutes, sec)
	case UnitHours:
		return l10n.F("%d hours %d min %s s", b.Hours, b.Minutes, sec)
	case UnitMinutes:
		return l10n.F("%d min %s s", b.Minutes, sec)
	}
	return l10n.F("%s s", sec)
}

// OrderText returns the localized description of the ordering.
func (r Report) OrderText() string {
	switch r.Order {
	case AllIdentical:
		return l10n.T("Timestamps are all identical")
	case Monotonic:
		return l10n.T("Timestamps are all in order")
	case OutOfOrder:
		return l10n.T("Out of order timestamps detected")
	}
	return l10n.T("No timestamps")
}

// RateText returns the localized average frame rate line.
func (r Report) RateText() string {
	if !r.HasRate {
		return l10n.T("Average frames per second: n/a")
	}
	return l10n.F("Average frames per second: %s", fmt.Sprintf("%.3f", r.FrameRate))
}

// Lines returns the report as the localized lines shown in info output.
// base converts frame timestamps to UTC before they are printed.
func (r Report) Lines(base Base) []string {
	if r.Order == NoTimestamps {
		return []string{r.OrderText()}
	}
	return []string{
		r.OrderText(),
		l10n.F("Min timestamp: %s UT", FormatTime(base.ToUTC(r.Min))),
		l10n.F("Max timestamp: %s UT", FormatTime(base.ToUTC(r.Max))),
		l10n.F("Min to max difference: %s", r.Breakdown.String()),
		r.RateText(),
	}
}
