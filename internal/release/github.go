package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/everstacklabs/modelmeter/internal/diff"
	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// createPR commits the released catalogue on a new branch and opens a PR.
func (p *Pipeline) createPR(ctx context.Context, cs *diff.ChangeSet, draft bool) (int, error) {
	branchName := fmt.Sprintf("modelmeter/catalog-%s", cs.NewVersion)
	title := fmt.Sprintf("chore(catalog): release model catalogue %s", cs.NewVersion)

	// Git operations
	gitOps, err := OpenRepo(p.release.CatalogPath, p.github.Token)
	if err != nil {
		return 0, err
	}

	if err := gitOps.CreateBranch(branchName); err != nil {
		return 0, fmt.Errorf("creating branch: %w", err)
	}

	if err := gitOps.Add(p.release.CatalogPath, p.release.SnapshotPath); err != nil {
		return 0, fmt.Errorf("staging changes: %w", err)
	}

	if _, err := gitOps.Commit(title); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}

	if err := gitOps.Push(branchName); err != nil {
		return 0, fmt.Errorf("pushing: %w", err)
	}

	// Create PR
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.github.Token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	body := diff.RenderPRBody(cs)

	pr, _, err := client.PullRequests.Create(ctx, p.github.Owner, p.github.Repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &branchName,
		Base:  &p.github.BaseBranch,
		Draft: &draft,
	})
	if err != nil {
		return 0, fmt.Errorf("creating PR: %w", err)
	}

	slog.Info("PR created",
		"number", pr.GetNumber(),
		"draft", draft,
		"url", pr.GetHTMLURL())

	return pr.GetNumber(), nil
}
