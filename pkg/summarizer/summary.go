// Package summarizer provides summary generation for containers and
// export runs.
package summarizer

import (
	"fmt"
	"time"

	"github.com/user/serexport/pkg/export"
	"github.com/user/serexport/pkg/ser"
	"github.com/user/serexport/pkg/timestamp"
)

// Summary contains everything reported about one container and,
// optionally, one export run from it.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Source container
	Source SourceInfo

	// Timestamp analysis, as localized report lines
	Timestamps []string

	// Export run; nil for info-only summaries
	Export *ExportInfo
}

// SourceInfo describes the source container.
type SourceInfo struct {
	Path           string
	Width          int
	Height         int
	Color          string
	PixelDepth     int
	EffectiveDepth int
	FrameCount     int
	FileSize       int64
	Observer       string
	Instrument     string
	Telescope      string
	StartTimeUTC   string

	// Estimates predict the size of whole-file exports, per format
	Estimates []SizeEstimate
}

// SizeEstimate is the predicted output size for one format.
type SizeEstimate struct {
	Format string
	Bytes  int64
}

// ExportInfo describes an export run.
type ExportInfo struct {
	RunID         string
	Output        string
	Format        string
	Selection     string
	Processing    []string
	State         string
	FramesWritten int
	FramesTotal   int
	BytesWritten  int64
	Estimated     int64 // 0 when no estimate was made
	Error         string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets the source description from a container header.
// effectiveDepth is the detected pixel depth.
func (b *Builder) WithSource(path string, h ser.Header, fileSize int64, effectiveDepth int) *Builder {
	info := SourceInfo{
		Path:           path,
		Width:          int(h.Width),
		Height:         int(h.Height),
		Color:          h.ColorID.String(),
		PixelDepth:     int(h.PixelDepth),
		EffectiveDepth: effectiveDepth,
		FrameCount:     int(h.FrameCount),
		FileSize:       fileSize,
		Observer:       h.ObserverString(),
		Instrument:     h.InstrumentString(),
		Telescope:      h.TelescopeString(),
	}
	if h.DateTimeUTC > 0 {
		info.StartTimeUTC = timestamp.FormatTime(uint64(h.DateTimeUTC))
	}
	b.summary.Source = info
	return b
}

// WithEstimate adds a predicted whole-file output size for format.
func (b *Builder) WithEstimate(format string, bytes int64) *Builder {
	b.summary.Source.Estimates = append(b.summary.Source.Estimates, SizeEstimate{Format: format, Bytes: bytes})
	return b
}

// WithTimestamps sets the timestamp report lines.
func (b *Builder) WithTimestamps(r timestamp.Report, base timestamp.Base) *Builder {
	b.summary.Timestamps = r.Lines(base)
	return b
}

// WithExport sets the run description. processing names the operators
// applied to each frame.
func (b *Builder) WithExport(cfg export.Config, p export.Progress, processing []string) *Builder {
	info := &ExportInfo{
		RunID:         p.RunID,
		Output:        cfg.Output,
		Format:        cfg.Format.String(),
		Selection:     selectionText(cfg),
		Processing:    processing,
		State:         p.State.String(),
		FramesWritten: p.FramesWritten,
		FramesTotal:   p.FramesTotal,
		BytesWritten:  p.BytesWritten,
	}
	if p.Err != nil {
		info.Error = p.Err.Error()
	}
	b.summary.Export = info
	return b
}

// WithExportEstimate records the size predicted before the run. It must
// follow WithExport.
func (b *Builder) WithExportEstimate(bytes int64) *Builder {
	if b.summary.Export != nil {
		b.summary.Export.Estimated = bytes
	}
	return b
}

func selectionText(cfg export.Config) string {
	return fmt.Sprintf("%d-%d / %d, %s", cfg.Start+1, cfg.End+1, cfg.Decimation, cfg.Direction)
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
