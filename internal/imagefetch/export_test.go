package imagefetch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"vt-go/internal/testutil"
)

func TestExport(t *testing.T) {
	data := testutil.PNG(200, 100)
	dir := t.TempDir()

	t.Run("raw bytes", func(t *testing.T) {
		path := filepath.Join(dir, "raw.png")
		if err := Export(data, path, 0); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read export: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Error("raw export differs from payload")
		}
	})

	t.Run("resized keeps aspect ratio", func(t *testing.T) {
		path := filepath.Join(dir, "small.jpg")
		if err := Export(data, path, 50); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		img, err := imaging.Open(path)
		if err != nil {
			t.Fatalf("open export: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
			t.Errorf("exported bounds = %dx%d, want 50x25", b.Dx(), b.Dy())
		}
	})

	t.Run("undecodable payload", func(t *testing.T) {
		if err := Export([]byte("nope"), filepath.Join(dir, "bad.png"), 10); err == nil {
			t.Error("Export() of garbage should return error")
		}
	})

	t.Run("unknown extension", func(t *testing.T) {
		if err := Export(data, filepath.Join(dir, "out.xyz"), 10); err == nil {
			t.Error("Export() with unknown extension should return error")
		}
	})
}
