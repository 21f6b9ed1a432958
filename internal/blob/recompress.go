package blob

import (
	"fmt"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// ContentType of every stored object
const ContentType = "image/png"

// Recompress decodes the scan at localPath and writes it to w as PNG at the given level.
// Any format imaging can decode is accepted.
func Recompress(localPath string, w io.Writer, level png.CompressionLevel) error {
	img, err := imaging.Open(localPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", localPath, err)
	}
	if err := imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", localPath, err)
	}
	return nil
}
