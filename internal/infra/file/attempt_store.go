package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AttemptsKey is the storage key holding the email -> attempt count object.
const AttemptsKey = "quizAttempts"

// AttemptStore keeps attempt counts in a local JSON key-value file, the
// terminal counterpart of a browser's local storage. Other keys in the file
// are preserved.
type AttemptStore struct {
	path string
	mu   sync.Mutex
}

func NewAttemptStore(path string) *AttemptStore {
	return &AttemptStore{path: path}
}

func (s *AttemptStore) Attempts(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, counts, err := s.load()
	if err != nil {
		return 0, err
	}
	return counts[strings.TrimSpace(email)], nil
}

func (s *AttemptStore) Increment(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, counts, err := s.load()
	if err != nil {
		return 0, err
	}
	k := strings.TrimSpace(email)
	counts[k]++
	if err := s.save(doc, counts); err != nil {
		return 0, err
	}
	return counts[k], nil
}

func (s *AttemptStore) load() (map[string]json.RawMessage, map[string]int, error) {
	doc := map[string]json.RawMessage{}
	counts := map[string]int{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, counts, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read attempts: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, counts, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if raw, ok := doc[AttemptsKey]; ok {
		if err := json.Unmarshal(raw, &counts); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", AttemptsKey, err)
		}
		if counts == nil {
			counts = map[string]int{}
		}
	}
	return doc, counts, nil
}

func (s *AttemptStore) save(doc map[string]json.RawMessage, counts map[string]int) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	doc[AttemptsKey] = raw
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".attempts-*")
	if err != nil {
		return fmt.Errorf("write attempts: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write attempts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write attempts: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
