package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ColonelBlimp/bintype/internal/recovery"
)

// FrameBuffer is the capacity of a source's frame channel.
const FrameBuffer = 64

// MaxLineLength bounds a frame line. Longer lines are dropped whole.
const MaxLineLength = 1024

// Source produces frames until it is closed or its device fails.
type Source interface {
	// Frames is closed when the source stops.
	Frames() <-chan Frame
	// Close stops the source and releases its device.
	Close() error
	// Err reports why the source stopped on its own, or nil.
	Err() error
}

// Reader is a Source over a line-oriented stream such as a serial port or
// stdin. Malformed lines are logged and skipped.
type Reader struct {
	r      io.Reader
	closer io.Closer
	logger *slog.Logger

	frames   chan Frame
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
	err      error
}

// NewReader starts reading frames from r. closer, when not nil, is closed by
// Close to unblock a pending read.
func NewReader(r io.Reader, closer io.Closer, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Reader{
		r:        r,
		closer:   closer,
		logger:   logger,
		frames:   make(chan Frame, FrameBuffer),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go func() {
		var err error
		defer func() {
			s.err = err
			close(s.frames)
			close(s.finished)
		}()
		defer recovery.Recover(s.logger, &err)
		err = s.run()
	}()
	return s
}

// Frames implements Source.
func (s *Reader) Frames() <-chan Frame {
	return s.frames
}

// Err implements Source. It is valid once Frames is closed.
func (s *Reader) Err() error {
	select {
	case <-s.finished:
		return s.err
	default:
		return nil
	}
}

// Close implements Source. Without a closer a read already blocked in r is
// abandoned rather than waited for.
func (s *Reader) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	if s.closer != nil {
		<-s.finished
	}
	return err
}

// run reads until EOF or Close. A serial port with a read timeout returns
// (0, nil) when idle, so reads are not wrapped in a bufio.Scanner.
func (s *Reader) run() error {
	buf := make([]byte, 256)
	var pending []byte
	line := 0
	// skipping is set while the rest of an oversized line is discarded
	skipping := false
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line++
				if skipping {
					skipping = false
				} else if !s.deliver(line, string(pending[:i])) {
					return nil
				}
				pending = pending[i+1:]
			}
			if len(pending) > MaxLineLength {
				if !skipping {
					s.logger.Warn("dropping oversized line", "line", line+1, "limit", MaxLineLength)
				}
				skipping = true
				pending = pending[:0]
			}
		}
		if err != nil {
			if len(pending) > 0 && !skipping {
				line++
				s.deliver(line, string(pending))
			}
			if errors.Is(err, io.EOF) || s.closing() {
				return nil
			}
			return fmt.Errorf("read frames: %w", err)
		}
		if s.closing() {
			return nil
		}
	}
}

// deliver parses and sends one line; false means the source is closing.
func (s *Reader) deliver(n int, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "#") {
		return true
	}
	f, err := ParseFrame(text)
	if err != nil {
		s.logger.Warn("skipping frame", "line", n, "error", err)
		return true
	}
	select {
	case s.frames <- f:
		return true
	case <-s.done:
		return false
	}
}

func (s *Reader) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ReadReplay loads a recorded session: one frame per line, blank lines and
// '#' comments ignored. Unlike Reader it rejects malformed lines.
func ReadReplay(r io.Reader) ([]Frame, error) {
	var frames []Frame
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		f, err := ParseFrame(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return frames, nil
}
