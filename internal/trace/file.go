package trace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
)

// RotatingFile appends JSON lines to path, rotating (and xz-compressing the
// rotated-out file) once it crosses maxBytes.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	f        *os.File
	size     int64
}

// OpenRotatingFile opens (creating if needed) the trace file at path.
func OpenRotatingFile(path string, maxBytes int64) (*RotatingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("trace: stat %s: %w", path, err)
	}
	return &RotatingFile{path: path, maxBytes: maxBytes, f: f, size: info.Size()}, nil
}

// WriteLine appends line plus a trailing newline, rotating first if that
// would cross maxBytes.
func (r *RotatingFile) WriteLine(line []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxBytes > 0 && r.size+int64(len(line))+1 > r.maxBytes {
		if err := r.rotateLocked(); err != nil {
			return err
		}
	}
	n, err := r.f.Write(append(line, '\n'))
	r.size += int64(n)
	if err != nil {
		return fmt.Errorf("trace: write: %w", err)
	}
	return nil
}

func (r *RotatingFile) rotateLocked() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("trace: close for rotation: %w", err)
	}
	rotated := fmt.Sprintf("%s.%d", r.path, time.Now().UnixNano())
	if err := os.Rename(r.path, rotated); err != nil {
		return fmt.Errorf("trace: rename for rotation: %w", err)
	}
	go compressAndRemove(rotated)

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("trace: reopen after rotation: %w", err)
	}
	r.f = f
	r.size = 0
	return nil
}

// compressAndRemove xz-compresses a rotated-out trace file in place and
// removes the uncompressed copy once the archive is flushed.
func compressAndRemove(path string) {
	in, err := os.Open(path)
	if err != nil {
		slog.Error("trace: open rotated file", "path", path, "error", err)
		return
	}
	defer in.Close()

	out, err := os.Create(path + ".xz")
	if err != nil {
		slog.Error("trace: create compressed file", "path", path, "error", err)
		return
	}
	defer out.Close()

	w, err := xz.NewWriter(out)
	if err != nil {
		slog.Error("trace: xz writer", "error", err)
		return
	}
	if _, err := io.Copy(w, in); err != nil {
		slog.Error("trace: xz compress", "path", path, "error", err)
		return
	}
	if err := w.Close(); err != nil {
		slog.Error("trace: xz close", "path", path, "error", err)
		return
	}
	if err := os.Remove(path); err != nil {
		slog.Error("trace: remove rotated file", "path", path, "error", err)
	}
}

// Close closes the active file handle.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close() //nolint:wrapcheck
}
