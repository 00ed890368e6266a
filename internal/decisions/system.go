// Package decisions serves read access to notarized decisions.
package decisions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/notary/internal/records"
	"github.com/JaimeStill/notary/pkg/canonical"
	"github.com/JaimeStill/notary/pkg/pagination"
	"github.com/JaimeStill/notary/pkg/storage"
)

// System defines the read contract over the record store and archive.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[records.Record], error)
	// Find accepts a full digest or a 16-character label.
	Find(ctx context.Context, ref string) (*records.Record, error)
	// Canonical returns the archived canonical form for a full digest.
	Canonical(ctx context.Context, hash string) ([]byte, error)
}

// Downloader reads archived blobs.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type system struct {
	store      records.Store
	archive    Downloader
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the decisions system. archive may be nil when blob storage
// is not configured.
func New(store records.Store, archive Downloader, logger *slog.Logger, page pagination.Config) System {
	return &system{
		store:      store,
		archive:    archive,
		logger:     logger.With("system", "decisions"),
		pagination: page,
	}
}

func (s *system) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

func (s *system) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[records.Record], error) {
	lister, ok := s.store.(records.Lister)
	if !ok {
		return nil, records.ErrUnsupported
	}
	return lister.List(ctx, page)
}

func (s *system) Find(ctx context.Context, ref string) (*records.Record, error) {
	var digest canonical.Digest

	switch {
	case canonical.IsDigest(ref):
		digest = canonical.Digest(ref)
	case canonical.IsLabel(ref):
	default:
		return nil, ErrInvalidHash
	}

	label := ref
	if digest != "" {
		label = digest.Label()
	}

	found, err := s.store.Search(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", label, err)
	}

	for i := range found {
		if digest == "" || found[i].Hash == string(digest) {
			return &found[i], nil
		}
	}

	return nil, ErrNotFound
}

func (s *system) Canonical(ctx context.Context, hash string) ([]byte, error) {
	if !canonical.IsDigest(hash) {
		return nil, ErrInvalidHash
	}
	if s.archive == nil {
		return nil, records.ErrUnsupported
	}

	rc, err := s.archive.Download(ctx, records.ArchiveKey(hash))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	if canonical.Sum(data) != canonical.Digest(hash) {
		s.logger.Error("archive integrity check failed", "hash", hash)
		return nil, ErrCorrupt
	}

	return data, nil
}
