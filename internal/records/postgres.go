package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/notary/pkg/pagination"
	"github.com/JaimeStill/notary/pkg/query"
	"github.com/JaimeStill/notary/pkg/repository"
	"github.com/JaimeStill/notary/pkg/retry"
)

var projection = query.
	NewProjectionMap("public", "decision_records", "r").
	Project("id", "Number").
	Project("hash", "Hash").
	Project("hash_label", "Label").
	Project("question", "Question").
	Project("confidence", "Confidence").
	Project("created_at", "CreatedAt")

var (
	oldestFirst = query.SortField{Field: "CreatedAt"}
	newestFirst = query.SortField{Field: "CreatedAt", Descending: true}
)

// Postgres stores records in the decision_records table.
// The unique index on hash_label turns a lost creation race into ErrDuplicate.
type Postgres struct {
	db         *sql.DB
	publicURL  string
	logger     *slog.Logger
	pagination pagination.Config
}

// NewPostgres creates a table-backed store. Record URLs are rooted at publicURL.
func NewPostgres(db *sql.DB, publicURL string, logger *slog.Logger, cfg pagination.Config) *Postgres {
	return &Postgres{
		db:         db,
		publicURL:  publicURL,
		logger:     logger.With("system", "records", "backend", BackendPostgres),
		pagination: cfg,
	}
}

func (p *Postgres) Search(ctx context.Context, label string) ([]Record, error) {
	q, args := query.
		NewBuilder(projection, oldestFirst).
		WhereEquals("Label", label).
		Build()

	recs, err := repository.QueryMany(ctx, p.db, q, args, p.scan)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", label, classifyPg(err))
	}
	return recs, nil
}

func (p *Postgres) Create(ctx context.Context, draft *Draft) (*Record, error) {
	q := `
		INSERT INTO decision_records(hash, hash_label, schema_version, title, body, question, confidence, canonical)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, hash, hash_label, question, confidence, created_at`

	args := []any{
		draft.Hash.String(),
		draft.Label(),
		draft.Content.SchemaVersion,
		draft.Title,
		draft.Body,
		draft.Content.Decision.Question,
		string(draft.Content.Decision.Confidence),
		string(draft.Canonical),
	}

	rec, err := repository.QueryOne(ctx, p.db, q, args, p.scan)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", classifyPg(err))
	}

	p.logger.Info("record created", "number", rec.Number, "label", rec.Label)
	return &rec, nil
}

func (p *Postgres) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Record], error) {
	page.Normalize(p.pagination)

	qb := query.
		NewBuilder(projection, newestFirst).
		WhereSearch(page.Search, "Question", "Hash")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryCount(ctx, p.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", classifyPg(err))
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	recs, err := repository.QueryMany(ctx, p.db, pageSQL, pageArgs, p.scan)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", classifyPg(err))
	}

	result := pagination.NewPageResult(recs, total, page.Page, page.PageSize)
	return &result, nil
}

func (p *Postgres) scan(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.Number,
		&r.Hash,
		&r.Label,
		&r.Question,
		&r.Confidence,
		&r.CreatedAt,
	)
	if err == nil {
		r.URL = p.publicURL + "/decisions/" + r.Hash
	}
	return r, err
}

// classifyPg sorts database errors into transient and permanent failures.
func classifyPg(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch mapped := repository.MapError(err, ErrNotFound, ErrDuplicate); {
	case errors.Is(mapped, ErrDuplicate):
		return retry.Permanent(mapped)
	case errors.Is(mapped, ErrNotFound):
		return mapped
	case repository.Transient(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return retry.Permanent(fmt.Errorf("%w: %v", ErrRejected, err))
}
