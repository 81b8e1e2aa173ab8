// Package obslog keeps an append-only archive of published
// observations as zstd-compressed JSON lines. Like the sqlite index it
// is write-only operator tooling: cmd/replay reads it, the bridge never
// does.
package obslog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"citymayor.ai/internal/protocol"
)

// Writer appends observations to a single archive file. Each Append is
// flushed as its own zstd frame so a crash loses at most the write in
// progress.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc}, nil
}

// Append archives one observation.
func (w *Writer) Append(obs *protocol.Observation) error {
	raw, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("obslog: %w", err)
	}
	raw = append(raw, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.enc.Write(raw); err != nil {
		return fmt.Errorf("obslog: %w", err)
	}
	return w.enc.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Close(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

// ReadAll decodes every archived observation in file order.
func ReadAll(path string) ([]*protocol.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []*protocol.Observation
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obs protocol.Observation
		if err := json.Unmarshal(line, &obs); err != nil {
			return nil, fmt.Errorf("obslog: line %d: %w", len(out)+1, err)
		}
		out = append(out, &obs)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
