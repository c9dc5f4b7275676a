package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// WithVersion adds the tool version to the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder
	t := f.translate

	fmt.Fprintf(&b, "# %s\n\n", t("SER Export Summary"))

	src := s.Source
	fmt.Fprintf(&b, "## %s\n\n", t("Source"))
	rows := [][2]string{
		{t("File"), src.Path},
		{t("Frame Size"), fmt.Sprintf("%dx%d", src.Width, src.Height)},
		{t("Color"), src.Color},
		{t("Pixel Depth"), depthText(src, t)},
		{t("Frames"), fmt.Sprintf("%d", src.FrameCount)},
		{t("File Size"), formatBytes(src.FileSize)},
	}
	for _, opt := range [][2]string{
		{t("Observer"), src.Observer},
		{t("Instrument"), src.Instrument},
		{t("Telescope"), src.Telescope},
		{t("Start Time (UTC)"), src.StartTimeUTC},
	} {
		if opt[1] != "" {
			rows = append(rows, opt)
		}
	}
	for _, e := range src.Estimates {
		rows = append(rows, [2]string{fmt.Sprintf("%s (%s)", t("Estimated Size"), strings.ToUpper(e.Format)), formatBytes(e.Bytes)})
	}
	writeTable(&b, t, rows)

	if len(s.Timestamps) > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Timestamps"))
		for _, line := range s.Timestamps {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if e := s.Export; e != nil {
		fmt.Fprintf(&b, "## %s\n\n", t("Export"))
		processing := t("None")
		if len(e.Processing) > 0 {
			processing = strings.Join(e.Processing, ", ")
		}
		result := t(e.State)
		if e.Error != "" {
			result = fmt.Sprintf("%s (%s)", result, e.Error)
		}
		rows := [][2]string{
			{t("Output"), e.Output},
			{t("Format"), e.Format},
			{t("Selection"), e.Selection},
			{t("Processing"), processing},
			{t("Frames Written"), fmt.Sprintf("%d / %d", e.FramesWritten, e.FramesTotal)},
		}
		if e.Estimated > 0 {
			rows = append(rows, [2]string{t("Estimated Size"), formatBytes(e.Estimated)})
		}
		rows = append(rows,
			[2]string{t("Bytes Written"), formatBytes(e.BytesWritten)},
			[2]string{t("Result"), result},
			[2]string{t("Run ID"), e.RunID},
		)
		writeTable(&b, t, rows)
	}

	b.WriteString("---\n\n")
	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	if f.version != "" {
		footer += fmt.Sprintf(" by serexport %s", f.version)
	}
	b.WriteString(footer + "\n")
	return b.String()
}

func depthText(src SourceInfo, t func(string) string) string {
	if src.EffectiveDepth > 0 && src.EffectiveDepth != src.PixelDepth {
		return fmt.Sprintf("%d bits (%d %s)", src.PixelDepth, src.EffectiveDepth, t("effective"))
	}
	return fmt.Sprintf("%d bits", src.PixelDepth)
}

func writeTable(b *strings.Builder, t func(string) string, rows [][2]string) {
	fmt.Fprintf(b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", r[0], strings.ReplaceAll(r[1], "|", "\\|"))
	}
	b.WriteString("\n")
}

// formatBytes formats a byte count in binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}
