package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/JaimeStill/notary/pkg/retry"
)

const searchPageSize = 100

// bodyHash matches the trailer written by NewDraft. Submitted text can carry
// a look-alike line, so the last match wins.
var bodyHash = regexp.MustCompile("(?m)^---\\r?\\n\\r?\\n\\*\\*Hash:\\*\\* `([0-9a-f]{64})`\\r?$")

// GitHub stores records as issues in a single repository.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// NewGitHub creates an issue-backed store from cfg.
func NewGitHub(cfg *GitHubConfig, logger *slog.Logger) (*GitHub, error) {
	client := github.NewClient(&http.Client{Timeout: 30 * time.Second}).WithAuthToken(cfg.Token)

	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
	}

	return NewGitHubWithClient(client, cfg.Owner, cfg.Repo, logger), nil
}

// NewGitHubWithClient creates an issue-backed store around an existing client.
func NewGitHubWithClient(client *github.Client, owner, repo string, logger *slog.Logger) *GitHub {
	return &GitHub{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.With("system", "records", "backend", BackendGitHub),
	}
}

func (g *GitHub) Search(ctx context.Context, label string) ([]Record, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{LabelPrefix + label},
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: searchPageSize},
	}

	found := make([]Record, 0)
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", label, classify(err))
		}

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			found = append(found, issueRecord(issue, label))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return found, nil
}

func (g *GitHub) Create(ctx context.Context, draft *Draft) (*Record, error) {
	req := &github.IssueRequest{
		Title:  github.String(draft.Title),
		Body:   github.String(draft.Body),
		Labels: &draft.Labels,
	}

	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.repo, req)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", classify(err))
	}

	rec := issueRecord(issue, draft.Label())
	rec.Hash = draft.Hash.String()
	rec.Question = draft.Content.Decision.Question
	rec.Confidence = string(draft.Content.Decision.Confidence)

	g.logger.Info("issue created", "number", rec.Number, "label", rec.Label)
	return &rec, nil
}

func issueRecord(issue *github.Issue, label string) Record {
	rec := Record{
		Number:    int64(issue.GetNumber()),
		URL:       issue.GetHTMLURL(),
		Label:     label,
		CreatedAt: issue.GetCreatedAt().Time,
	}
	if m := bodyHash.FindAllStringSubmatch(issue.GetBody(), -1); m != nil {
		rec.Hash = m[len(m)-1][1]
	}
	for _, l := range issue.Labels {
		if level, ok := strings.CutPrefix(l.GetName(), confidencePrefix); ok {
			rec.Confidence = strings.ToUpper(level)
		}
	}
	return rec
}

// classify sorts GitHub client errors into transient and permanent failures.
// Rate limit errors carry the reset time as a retry hint.
func classify(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		return retry.After(fmt.Errorf("%w: %v", ErrUnavailable, err), max(wait, 0))
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return retry.After(fmt.Errorf("%w: %v", ErrUnavailable, err), abuseErr.GetRetryAfter())
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusTooManyRequests || status >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		default:
			return retry.Permanent(fmt.Errorf("%w: %v", ErrRejected, err))
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
