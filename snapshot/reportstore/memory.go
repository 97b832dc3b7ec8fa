package reportstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// MemoryStore keeps report documents in process memory. It is safe for
// concurrent use and is the store of choice for tests and short-lived
// automation runs.
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName: make(map[string][]byte),
	}
}

// SaveReport persists the report document under its name and returns a
// generated storage id.
func (s *MemoryStore) SaveReport(_ context.Context, report snapshot.Report) (string, error) {
	document, err := report.MarshalDocument()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[report.Name]; taken {
		return "", snapshot.ErrReportExists
	}

	s.byName[report.Name] = document

	return uuid.NewString(), nil
}

// GetReportByName retrieves a stored report.
func (s *MemoryStore) GetReportByName(_ context.Context, name string) (snapshot.Report, error) {
	s.mu.RLock()
	document, found := s.byName[name]
	s.mu.RUnlock()

	if !found {
		return snapshot.Report{}, snapshot.ErrReportNotFound
	}

	return snapshot.UnmarshalReport(document)
}

var _ snapshot.ReportStore = (*MemoryStore)(nil)
