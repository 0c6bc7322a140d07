package repository

import (
	"context"
	"sync"

	"github.com/agenthost/agenthost-mini/internal/model"
)

// MemoryQuotaRepository keeps quota records in process memory. Records live
// for the lifetime of the process.
type MemoryQuotaRepository struct {
	mu      sync.RWMutex
	records map[string]*model.QuotaRecord
}

func NewMemoryQuotaRepository() *MemoryQuotaRepository {
	return &MemoryQuotaRepository{records: make(map[string]*model.QuotaRecord)}
}

var _ QuotaRepository = (*MemoryQuotaRepository)(nil)

func (r *MemoryQuotaRepository) Get(_ context.Context, key string) (*model.QuotaRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	// hand out a copy so callers never race with Increment
	cp := *rec
	cp.Usage = make(map[string]int, len(rec.Usage))
	for d, n := range rec.Usage {
		cp.Usage[d] = n
	}
	return &cp, nil
}

func (r *MemoryQuotaRepository) Create(_ context.Context, rec model.QuotaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.Key]; ok {
		return ErrKeyExists
	}
	if rec.Usage == nil {
		rec.Usage = make(map[string]int)
	}
	r.records[rec.Key] = &rec
	return nil
}

func (r *MemoryQuotaRepository) Increment(_ context.Context, key, date string, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return 0, ErrKeyNotFound
	}
	rec.Usage[date]++
	n := rec.Usage[date]

	if len(rec.Usage) > keep {
		dates := make([]string, 0, len(rec.Usage))
		for d := range rec.Usage {
			dates = append(dates, d)
		}
		for _, d := range staleDates(dates, keep) {
			delete(rec.Usage, d)
		}
	}
	return n, nil
}
