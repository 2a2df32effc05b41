package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolPilot/internal/model"
)

// JsonlJournal appends transaction records to a JSONL file.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

// Record appends one record as a JSON line. A transaction shows up once per
// status change; readers keep the last line per hash.
func (s *JsonlJournal) Record(_ context.Context, record model.TxRecord) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal tx record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write tx record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

// ReadJsonlJournal loads the latest record per transaction hash, in first
// seen order, optionally filtered by run id.
func ReadJsonlJournal(path, runID string) ([]model.TxRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	defer file.Close()

	var (
		order  []string
		latest = make(map[string]model.TxRecord)
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record model.TxRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("decode tx record: %w", err)
		}
		if runID != "" && record.RunID != runID {
			continue
		}
		if _, seen := latest[record.Hash]; !seen {
			order = append(order, record.Hash)
		}
		latest[record.Hash] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}

	out := make([]model.TxRecord, 0, len(order))
	for _, hash := range order {
		out = append(out, latest[hash])
	}
	return out, nil
}
