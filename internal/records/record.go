// Package records persists notarized decisions in a label-searchable store.
//
// A store needs only two capabilities: search by hash label and create with
// labels. Records are immutable once created.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/notary/pkg/pagination"
)

// LabelPrefix marks the hash label among a record's labels.
const LabelPrefix = "hash:"

// Record is a persisted decision as identified by its store.
type Record struct {
	Number     int64     `json:"issue_number"`
	URL        string    `json:"issue_url"`
	Hash       string    `json:"hash"`
	Label      string    `json:"label"`
	Question   string    `json:"question,omitempty"`
	Confidence string    `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the external record store.
type Store interface {
	// Search returns every record carrying the given hash label, oldest first.
	// An empty result with a nil error is authoritative.
	Search(ctx context.Context, label string) ([]Record, error)
	// Create persists draft and returns the new record.
	Create(ctx context.Context, draft *Draft) (*Record, error)
}

// Lister is implemented by stores that can page through every record.
type Lister interface {
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Record], error)
}

// New creates the store selected by cfg.Backend. The Postgres backend
// requires db; the GitHub backend ignores it.
func New(cfg *Config, db *sql.DB, logger *slog.Logger, page pagination.Config) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres backend requires a database")
		}
		return NewPostgres(db, cfg.PublicURL, logger, page), nil
	case BackendGitHub:
		return NewGitHub(&cfg.GitHub, logger)
	}
	return nil, fmt.Errorf("unknown record backend %q", cfg.Backend)
}

// ArchiveKey returns the blob key under which a record's canonical form is kept.
func ArchiveKey(hash string) string {
	return "decisions/" + hash + ".json"
}
