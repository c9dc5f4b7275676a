// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/serexport/pkg/ports"
)

// Sink saves debug output to files.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveSelectionJSON saves the ordered frame selection as JSON.
func (s *Sink) SaveSelectionJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "selection.json")
	return s.fs.WriteFile(path, data)
}

// SaveTimestampsJSON saves the timestamp report as JSON.
func (s *Sink) SaveTimestampsJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "timestamps.json")
	return s.fs.WriteFile(path, data)
}

// SaveFrame saves a processed frame as PNG.
func (s *Sink) SaveFrame(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", index))
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
