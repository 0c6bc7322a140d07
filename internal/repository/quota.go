package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/agenthost/agenthost-mini/internal/model"
)

var (
	ErrKeyExists   = errors.New("api key already exists")
	ErrKeyNotFound = errors.New("api key not found")
)

// QuotaRepository holds API key quota records and their daily usage counters.
type QuotaRepository interface {
	// Get returns the record for key, or (nil, nil) when the key is unknown.
	Get(ctx context.Context, key string) (*model.QuotaRecord, error)
	// Create stores a new record. It returns ErrKeyExists if the key is taken.
	Create(ctx context.Context, rec model.QuotaRecord) error
	// Increment adds one to the counter for date and keeps only the newest
	// `keep` dates. It returns the new count, or ErrKeyNotFound.
	Increment(ctx context.Context, key, date string, keep int) (int, error)
}

// staleDates returns the dates to drop so that only the newest keep remain.
func staleDates(dates []string, keep int) []string {
	if keep <= 0 || len(dates) <= keep {
		return nil
	}
	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)
	return sorted[:len(sorted)-keep]
}
