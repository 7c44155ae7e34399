package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// BatchState is the lifecycle state of a batch evaluation.
type BatchState string

const (
	BatchRunning   BatchState = "RUNNING"
	BatchSucceeded BatchState = "SUCCEEDED"
	BatchCancelled BatchState = "CANCELLED"
)

// BatchResult is the outcome of one expression in a batch.
type BatchResult struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
	Outcome    string `json:"outcome"`
}

// Batch is a snapshot of a batch evaluation.
type Batch struct {
	Name        string        `json:"name"`
	State       BatchState    `json:"state"`
	Expressions []string      `json:"expressions"`
	Results     []BatchResult `json:"results"`
	CreateTime  time.Time     `json:"createTime"`
	EndTime     time.Time     `json:"endTime,omitempty"`
}

// Done reports whether the batch reached a terminal state.
func (b *Batch) Done() bool { return b.State != BatchRunning }

func (b *Batch) snapshot() *Batch {
	c := *b
	c.Expressions = append([]string(nil), b.Expressions...)
	c.Results = append([]BatchResult(nil), b.Results...)
	return &c
}

// CreateBatch records a new running batch for expressions. Its name has the
// form "operations/<uuid>".
func (s *Store) CreateBatch(expressions []string) *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &Batch{
		Name:        "operations/" + uuid.NewString(),
		State:       BatchRunning,
		Expressions: append([]string(nil), expressions...),
		Results:     make([]BatchResult, 0, len(expressions)),
		CreateTime:  time.Now(),
	}
	if len(expressions) == 0 {
		b.State = BatchSucceeded
		b.EndTime = b.CreateTime
	}
	s.batches[b.Name] = b
	return b.snapshot()
}

// AppendBatchResult records the next result of a running batch. The batch
// succeeds once every expression has a result. An error is returned when the
// batch is unknown or no longer running, which tells the worker to stop.
func (s *Store) AppendBatchResult(name string, r BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[name]
	if !ok {
		return fmt.Errorf("batch '%s': %w", name, ErrNotFound)
	}
	if b.State != BatchRunning {
		return fmt.Errorf("batch '%s' is not running (state: %s)", name, b.State)
	}
	b.Results = append(b.Results, r)
	if len(b.Results) == len(b.Expressions) {
		b.State = BatchSucceeded
		b.EndTime = time.Now()
	}
	return nil
}

// GetBatch retrieves a batch by name.
func (s *Store) GetBatch(name string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[name]
	if !ok {
		return nil, fmt.Errorf("batch '%s': %w", name, ErrNotFound)
	}
	return b.snapshot(), nil
}

// ListBatches returns all batches, oldest first.
func (s *Store) ListBatches() []*Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		result = append(result, b.snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreateTime.Equal(result[j].CreateTime) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreateTime.Before(result[j].CreateTime)
	})
	return result
}

// CancelBatch stops a running batch. Cancelling a finished batch is an error.
func (s *Store) CancelBatch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[name]
	if !ok {
		return fmt.Errorf("batch '%s': %w", name, ErrNotFound)
	}
	if b.State != BatchRunning {
		return fmt.Errorf("batch '%s' is not running (state: %s)", name, b.State)
	}
	b.State = BatchCancelled
	b.EndTime = time.Now()
	return nil
}

// DeleteBatch forgets a batch. A running batch stops at its next result.
func (s *Store) DeleteBatch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[name]; !ok {
		return fmt.Errorf("batch '%s': %w", name, ErrNotFound)
	}
	delete(s.batches, name)
	return nil
}
