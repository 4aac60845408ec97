package imagefetch

import (
	"bytes"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

// Export writes a stored payload to path. With width > 0 the image is
// resized to that width, keeping its aspect ratio, and re-encoded in the
// format implied by path's extension; otherwise the bytes are written as is.
func Export(data []byte, path string, width int) error {
	if width <= 0 {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	if err := imaging.Save(resized, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
