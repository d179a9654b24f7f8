package sdr

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource replays interleaved IQ bytes from a capture file, one
// acquisition window per Read. The final partial window, if any, is
// dropped and Read reports io.EOF.
type FileSource struct {
	cfg Config
	f   io.ReadCloser
	buf []byte
}

// NewFileSource builds an unopened capture replay source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Init opens the capture file named by cfg.Path.
func (s *FileSource) Init(_ context.Context, cfg Config) error {
	if cfg.Path == "" {
		return fmt.Errorf("sdr: file source needs a capture path")
	}
	if cfg.SizeSignal <= 0 {
		return fmt.Errorf("sdr: acquisition size must be positive, got %d", cfg.SizeSignal)
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return fmt.Errorf("sdr: open capture: %w", err)
	}
	s.cfg = cfg
	s.f = f
	s.buf = make([]byte, 2*cfg.SizeSignal)
	return nil
}

// Read returns the next acquisition window, or io.EOF at end of capture.
func (s *FileSource) Read(ctx context.Context) ([]complex64, error) {
	if s.f == nil {
		return nil, fmt.Errorf("sdr: file source not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.f, s.buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return ConvertIQ(s.buf)
}

// Close closes the capture file.
func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
