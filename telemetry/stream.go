package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// OpenStream resolves a text sink destination to a buffered writer: "" is
// off (nil writer), "-" is stdout, anything else is a file path. The returned
// close func flushes the buffer and closes the file, reporting either failure.
func OpenStream(dest string) (io.Writer, func() error, error) {
	switch dest {
	case "":
		return nil, func() error { return nil }, nil
	case "-":
		w := bufio.NewWriter(os.Stdout)
		return w, func() error {
			if err := w.Flush(); err != nil {
				return fmt.Errorf("flushing stdout: %w", err)
			}
			return nil
		}, nil
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", dest, err)
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		var errs []error
		if err := w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flushing %s: %w", dest, err))
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", dest, err))
		}
		return errors.Join(errs...)
	}, nil
}
