package store

import "sync"

// Store holds the current DatasetSnapshot per dataset. Writers publish whole
// snapshots; readers always observe either the previous snapshot or the new
// one, never a half-rebuilt collection.
type Store struct {
	mu        sync.RWMutex
	snapshots map[Dataset]*DatasetSnapshot
}

// StoreStats provides statistics about the store
type StoreStats struct {
	Datasets     int
	TotalRecords int
}

// NewStore creates an empty point-record store
func NewStore() *Store {
	return &Store{
		snapshots: make(map[Dataset]*DatasetSnapshot),
	}
}

// Replace swaps in a dataset's freshly built snapshot as a single atomic
// operation. The previous snapshot for that dataset is discarded.
func (s *Store) Replace(snap *DatasetSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Dataset] = snap
}

// Snapshot returns the current snapshot for a dataset, or nil if the dataset
// has not been ingested yet.
func (s *Store) Snapshot(dataset Dataset) *DatasetSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[dataset]
}

// Records returns the current point-record collection for a dataset. The
// returned slice must not be mutated.
func (s *Store) Records(dataset Dataset) []PointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap, ok := s.snapshots[dataset]; ok {
		return snap.Records
	}
	return nil
}

// Counts returns the record count per ingested dataset.
func (s *Store) Counts() map[Dataset]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Dataset]int, len(s.snapshots))
	for dataset, snap := range s.snapshots {
		counts[dataset] = len(snap.Records)
	}
	return counts
}

// Stats returns statistics about the store
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{Datasets: len(s.snapshots)}
	for _, snap := range s.snapshots {
		stats.TotalRecords += len(snap.Records)
	}
	return stats
}
