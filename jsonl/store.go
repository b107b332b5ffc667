// Package jsonl persists session transcripts as JSON Lines.
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var _ changescope.TurnStore = (*TurnStore)(nil)

// maxLineSize is the maximum size for a single JSONL line (16MB).
// Turns carry the full prompt, which embeds every source file.
const maxLineSize = 16 * 1024 * 1024

// TurnStore appends turns to a JSONL file and reads them back.
type TurnStore struct {
	path string
}

// NewTurnStore creates a TurnStore backed by the file at path.
func NewTurnStore(path string) *TurnStore {
	return &TurnStore{path: path}
}

// Path returns the transcript file path.
func (s *TurnStore) Path() string {
	return s.path
}

// Append writes turn as one line, creating parent directories if needed.
func (s *TurnStore) Append(turn changescope.Turn) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Load reads all turns in file order. Returns an empty slice if the file doesn't exist.
func (s *TurnStore) Load() ([]changescope.Turn, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var turns []changescope.Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var turn changescope.Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		turns = append(turns, turn)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return turns, nil
}
