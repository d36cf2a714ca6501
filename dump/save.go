package dump

import (
	"fmt"
	"io"

	"vfdump/save"
)

// Save detects the save technology and writes the whole save to w.
func Save(s *save.Subsystem, w io.Writer) (*save.Technology, error) {
	tech, err := save.Detect(s)
	if err != nil {
		return tech, err
	}
	return tech, SaveAs(s, tech, w)
}

// SaveAs writes the whole save to w assuming the given technology, bypassing detection.
func SaveAs(s *save.Subsystem, tech *save.Technology, w io.Writer) error {
	data := make([]byte, tech.Size)
	if err := tech.Get(s, data); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("dump: write save: %w", err)
	}
	return nil
}

// Restore detects the save technology and writes the image read from r as the whole save. The
// image must be exactly the detected capacity; nothing is written otherwise.
func Restore(s *save.Subsystem, r io.Reader) (*save.Technology, error) {
	tech, err := save.Detect(s)
	if err != nil {
		return tech, err
	}

	// one byte more than needed so oversized images are noticed
	data, err := io.ReadAll(io.LimitReader(r, int64(tech.Size)+1))
	if err != nil {
		return tech, fmt.Errorf("dump: read save image: %w", err)
	}
	if len(data) != tech.Size {
		return tech, &save.SizeError{Kind: tech.Kind, Want: tech.Size, Got: len(data)}
	}

	return tech, tech.Put(s, data)
}
