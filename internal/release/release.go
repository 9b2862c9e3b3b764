package release

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/everstacklabs/modelmeter/internal/config"
	"github.com/everstacklabs/modelmeter/internal/diff"
	"github.com/everstacklabs/modelmeter/internal/registry"
	"github.com/everstacklabs/modelmeter/internal/validate"
)

// ExitCode constants for CLI.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitChanges     = 2 // Changes detected (diff mode)
	ExitPolicyBlock = 3 // Blocked by key-stability policy
	ExitUnhealthy   = 4 // Backend health check failure
)

// Pipeline releases the working catalogue: it diffs it against the last
// released snapshot, gates the change and publishes it.
type Pipeline struct {
	release config.ReleaseConfig
	github  config.GitHubConfig
}

// New creates a new Pipeline.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{release: cfg.Release, github: cfg.GitHub}
}

// Result holds the outcome of a release.
type Result struct {
	ChangeSet  *diff.ChangeSet
	OldVersion string
	NewVersion string
	PRNumber   int
	PRDraft    bool
	Blocked    bool
	Skipped    bool
	Reason     string
}

// Diff compares the working catalogue with the released snapshot.
func (p *Pipeline) Diff() (*diff.ChangeSet, error) {
	old, err := registry.LoadFile(p.release.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("loading released snapshot: %w", err)
	}
	cur, err := registry.LoadFile(p.release.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return diff.Compute(old, cur, diff.DiffOptions{TrackDisplayName: true}), nil
}

// Release runs the full release workflow.
func (p *Pipeline) Release(ctx context.Context) (*Result, error) {
	result := &Result{}

	// 0. First release: the working catalogue becomes the snapshot
	if _, err := os.Stat(p.release.SnapshotPath); errors.Is(err, fs.ErrNotExist) {
		if p.release.DryRun {
			result.Skipped = true
			result.Reason = "no released snapshot"
			return result, nil
		}
		if err := p.refreshSnapshot(); err != nil {
			return nil, err
		}
		slog.Info("released snapshot initialised", "path", p.release.SnapshotPath)
		result.Skipped = true
		result.Reason = "snapshot initialised"
		return result, nil
	}

	// 1. Diff
	cs, err := p.Diff()
	if err != nil {
		return nil, err
	}
	result.ChangeSet = cs
	result.OldVersion = cs.OldVersion
	result.NewVersion = cs.NewVersion

	if !cs.HasChanges() {
		slog.Info("no changes detected", "version", cs.NewVersion)
		result.Skipped = true
		result.Reason = "no changes"
		return result, nil
	}

	// 2. Risk assessment
	draft, blocked, reason := assessRisk(cs)
	if blocked {
		result.Blocked = true
		result.Reason = reason
		slog.Warn("release blocked by policy", "reason", reason)
		return result, nil
	}
	result.PRDraft = draft

	// 3. Validate the working catalogue
	cur, err := registry.LoadFile(p.release.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if valResult := validate.ValidateRegistry(cur); valResult.HasErrors() {
		return nil, fmt.Errorf("validation failed:\n%s", validate.FormatResult(valResult))
	}

	if p.release.DryRun {
		slog.Info("dry run, would release", "changed", cs.TotalChanged(), "draft", draft)
		return result, nil
	}

	// 4. Bump version unless the maintainer already did
	if cs.NewVersion == cs.OldVersion {
		newVersion, err := p.bumpVersion(cs)
		if err != nil {
			return nil, fmt.Errorf("bumping version: %w", err)
		}
		result.NewVersion = newVersion
		cs.NewVersion = newVersion
	}

	// 5. Refresh snapshot
	if err := p.refreshSnapshot(); err != nil {
		return nil, err
	}

	// 6. Git + PR (if GitHub is configured)
	if p.github.Token != "" {
		prNum, err := p.createPR(ctx, cs, result.PRDraft)
		if err != nil {
			return nil, fmt.Errorf("creating PR: %w", err)
		}
		result.PRNumber = prNum
	}

	slog.Info("catalogue released",
		"from", result.OldVersion,
		"to", result.NewVersion,
		"new", len(cs.New),
		"updated", len(cs.Updated))

	return result, nil
}

func (p *Pipeline) bumpVersion(cs *diff.ChangeSet) (string, error) {
	writer := registry.NewWriter(p.release.CatalogPath)
	version, err := writer.Version()
	if err != nil {
		return "", err
	}

	newVersion, err := bumpSemver(version, len(cs.New) > 0)
	if err != nil {
		return "", err
	}

	if _, err := writer.SetVersion(newVersion); err != nil {
		return "", err
	}
	return newVersion, nil
}

func (p *Pipeline) refreshSnapshot() error {
	data, err := os.ReadFile(p.release.CatalogPath)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	if _, err := registry.Load(data); err != nil {
		return fmt.Errorf("catalog does not load: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.release.SnapshotPath), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := os.WriteFile(p.release.SnapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// bumpSemver increments MINOR for new models, PATCH for updates only.
func bumpSemver(version string, hasNew bool) (string, error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid semver: %s", version)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid semver: %s", version)
		}
		nums[i] = n
	}
	major, minor, patch := nums[0], nums[1], nums[2]

	if hasNew {
		minor++
		patch = 0
	} else {
		patch++
	}

	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}

// assessRisk evaluates the changeset against risk gates.
// Returns: (draft, blocked, reason)
func assessRisk(cs *diff.ChangeSet) (bool, bool, string) {
	// Removed or renamed keys → blocked
	if v := cs.Violations(); len(v) > 0 {
		return false, true, strings.Join(v, "; ")
	}

	draft := false

	// Changed models > 25 → draft PR
	if cs.TotalChanged() > 25 {
		draft = true
	}

	// Newly deprecated > 3 → draft PR
	if len(cs.Deprecated()) > 3 {
		draft = true
	}

	// Check for large price deltas
	for _, u := range cs.Updated {
		for _, c := range u.Changes {
			if delta, ok := diff.PriceDelta(c); ok && (delta > 0.35 || delta < -0.35) {
				draft = true
			}
		}
	}

	return draft, false, ""
}
