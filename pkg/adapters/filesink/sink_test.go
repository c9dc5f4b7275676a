package filesink

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/user/serexport/pkg/mocks"
	"github.com/user/serexport/pkg/ports"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})
	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveSelectionJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	data := []byte(`[0,2,4]`)
	if err := sink.SaveSelectionJSON(data); err != nil {
		t.Fatalf("SaveSelectionJSON failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "selection.json")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if string(saved) != string(data) {
		t.Errorf("expected %q, got %q", data, saved)
	}
}

func TestSink_SaveTimestampsJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveTimestampsJSON([]byte(`{"order":"in-order"}`)); err != nil {
		t.Fatalf("SaveTimestampsJSON failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "timestamps.json")
	if _, ok := fs.GetFile(expectedPath); !ok {
		t.Errorf("expected file to be saved at %s", expectedPath)
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	var gotFormat ports.ImageFormat = -1
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			gotFormat = format
			return []byte{0x89, 0x50, 0x4E, 0x47}, nil
		},
	}
	sink := New(testBaseDir, fs, renderer)

	for i := 0; i < 3; i++ {
		if err := sink.SaveFrame(i, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
			t.Fatalf("SaveFrame %d failed: %v", i, err)
		}
	}

	if gotFormat != ports.FormatPNG {
		t.Errorf("frames should be saved as PNG, got %v", gotFormat)
	}
	expectedPath := filepath.Join(testBaseDir, "frames", "frame-000002.png")
	if _, ok := fs.GetFile(expectedPath); !ok {
		t.Errorf("expected file to be saved at %s", expectedPath)
	}
	if len(fs.GetAllFiles()) != 3 {
		t.Errorf("expected 3 files, got %d", len(fs.GetAllFiles()))
	}
}
