// Package indexmgr drives the alias-pyramid publish lifecycle used by
// ingest: a new dataset is loaded into a fresh, timestamped concrete index
// and only exposed to queries by an atomic alias cutover once loading
// succeeds (spec §4.D). Grounded on f84825c0's IndexManager (index naming,
// write-alias creation, template bootstrap) adapted from log-rollover
// semantics to publish-then-cutover semantics.
package indexmgr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/backend"
	apperrors "github.com/mimirsbrunn/internal/pkg/errors"
)

// State is one stage of the publish lifecycle (spec §4.D).
type State string

const (
	StateInit     State = "init"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StatePublish  State = "publish"
	StateCleanup  State = "cleanup"
	StateAborting State = "aborting"
)

// timeFormat is the concrete index name's timestamp grammar, UTC, matching
// the teacher's "2006.01.02"-style rollover stamps but to second precision
// so two publishes in the same minute still sort uniquely.
const timeFormat = "20060102T150405"

// Manager owns one (doc type, dataset) pyramid: a root alias
// (munin), a type alias (munin_addr), and a dataset alias
// (munin_addr_fr), all pointing at a single concrete index once Publish
// has run.
type Manager struct {
	backend   *backend.Adapter
	log       *zap.Logger
	rootAlias string

	mu    sync.Mutex
	state State
	// lastTimestamp guards the monotonic-naming invariant: two indices
	// created back to back never collide and always sort by creation order.
	lastTimestamp string
}

func New(be *backend.Adapter, rootAlias string, log *zap.Logger) *Manager {
	return &Manager{backend: be, log: log, rootAlias: rootAlias, state: StateInit}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) transition(to State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Debug("indexmgr: transition", zap.String("from", string(m.state)), zap.String("to", string(to)))
	m.state = to
}

// IndexNameFor builds the concrete index name for a (doc type, dataset)
// pair at time now, enforcing the monotonic-timestamp invariant: if called
// twice within the same second for the same manager, the second name is
// bumped forward so no two publishes ever share a concrete index name.
func (m *Manager) IndexNameFor(docType, dataset string, now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := now.UTC().Format(timeFormat)
	if stamp <= m.lastTimestamp {
		t, _ := time.Parse(timeFormat, m.lastTimestamp)
		stamp = t.Add(time.Second).UTC().Format(timeFormat)
	}
	m.lastTimestamp = stamp
	return fmt.Sprintf("%s_%s_%s_%s", m.rootAlias, docType, dataset, stamp)
}

// Aliases returns the three alias names a concrete index is bound to once
// published: root, root_type, root_type_dataset.
func (m *Manager) Aliases(docType, dataset string) [3]string {
	return [3]string{
		m.rootAlias,
		fmt.Sprintf("%s_%s", m.rootAlias, docType),
		fmt.Sprintf("%s_%s_%s", m.rootAlias, docType, dataset),
	}
}

// Begin creates the concrete index and transitions Init -> Loading. The
// caller (Bulk Loader) then streams documents into indexName directly.
func (m *Manager) Begin(ctx context.Context, indexName string, mapping []byte) error {
	m.transition(StateLoading)
	if err := m.backend.CreateIndex(ctx, indexName, mapping); err != nil {
		m.transition(StateAborting)
		return fmt.Errorf("indexmgr: create index %s: %w", indexName, err)
	}
	return nil
}

// MarkReady transitions Loading -> Ready once the Bulk Loader reports the
// load finished within acceptable error bounds.
func (m *Manager) MarkReady(ctx context.Context, indexName string) error {
	if err := m.backend.Refresh(ctx, indexName); err != nil {
		m.transition(StateAborting)
		return fmt.Errorf("indexmgr: refresh %s: %w", indexName, err)
	}
	m.transition(StateReady)
	return nil
}

// Publish atomically cuts the three-level alias pyramid over to indexName,
// replacing whatever concrete indices previously backed those aliases
// (spec §4.D: the entire alias set moves in a single UpdateAliases call so a
// concurrent query never observes a partial cutover).
func (m *Manager) Publish(ctx context.Context, docType, dataset, indexName string) ([]string, error) {
	m.transition(StatePublish)

	aliases := m.Aliases(docType, dataset)
	previous, err := m.previousIndices(ctx, aliases[:])
	if err != nil {
		m.transition(StateAborting)
		return nil, err
	}

	actions := make([]backend.AliasAction, 0, len(aliases)+len(previous))
	for _, alias := range aliases {
		actions = append(actions, backend.AliasAction{Add: &backend.AliasRef{Index: indexName, Alias: alias}})
	}
	for _, old := range previous {
		if old == indexName {
			continue
		}
		for _, alias := range aliases {
			actions = append(actions, backend.AliasAction{Remove: &backend.AliasRef{Index: old, Alias: alias}})
		}
	}

	if err := m.backend.UpdateAliases(ctx, actions); err != nil {
		// Fallback: retry with adds only. A dangling old index kept
		// aliased alongside the new one is a cleanup nuisance, not a
		// correctness problem — queries still resolve the alias, they
		// just also see an extra (harmless) stale member during cleanup.
		addOnly := actions[:len(aliases)]
		if retryErr := m.backend.UpdateAliases(ctx, addOnly); retryErr != nil {
			m.transition(StateAborting)
			return nil, apperrors.ErrInvariantViolation.WithCause(retryErr).WithDetails(map[string]interface{}{
				"index": indexName,
			})
		}
		m.log.Warn("indexmgr: alias remove step failed, adds applied", zap.Error(err), zap.Strings("stale_indices", previous))
	}

	return previous, nil
}

// previousIndices returns the concrete indices currently bound to any of
// the given aliases, used to compute what Publish must detach and what
// Cleanup may later reap.
func (m *Manager) previousIndices(ctx context.Context, aliases []string) ([]string, error) {
	bound, err := m.backend.ListAliases(ctx, m.rootAlias)
	if err != nil {
		return nil, fmt.Errorf("indexmgr: list aliases: %w", err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, alias := range aliases {
		for _, idx := range bound[alias] {
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	return out, nil
}

// Cleanup deletes stale concrete indices left behind by Publish, then
// transitions Publish -> Cleanup -> Init for the next publish cycle.
func (m *Manager) Cleanup(ctx context.Context, staleIndices []string) error {
	m.transition(StateCleanup)
	var firstErr error
	for _, idx := range staleIndices {
		if err := m.backend.DeleteIndex(ctx, idx); err != nil {
			m.log.Warn("indexmgr: failed to reap stale index", zap.String("index", idx), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	m.transition(StateInit)
	return firstErr
}

// Abort transitions to Aborting and deletes the in-progress concrete
// index so a failed load never leaves a half-populated index reachable
// by any alias.
func (m *Manager) Abort(ctx context.Context, indexName string) error {
	m.transition(StateAborting)
	err := m.backend.DeleteIndex(ctx, indexName)
	m.transition(StateInit)
	return err
}

// Reap deletes those entries of liveIndices (the caller's list of existing
// concrete indices) that carry the root alias prefix and are bound to no
// alias at all — leftovers from a crash between Begin and Cleanup. It does
// not list the backend's indices itself. Safe to run at ingest startup.
func (m *Manager) Reap(ctx context.Context, liveIndices map[string]bool) error {
	bound, err := m.backend.ListAliases(ctx, m.rootAlias)
	if err != nil {
		return fmt.Errorf("indexmgr: reap: list aliases: %w", err)
	}
	aliased := make(map[string]bool)
	for _, indices := range bound {
		for _, idx := range indices {
			aliased[idx] = true
		}
	}
	for idx := range liveIndices {
		if aliased[idx] || !strings.HasPrefix(idx, m.rootAlias+"_") {
			continue
		}
		if err := m.backend.DeleteIndex(ctx, idx); err != nil {
			m.log.Warn("indexmgr: reap failed to delete dangling index", zap.String("index", idx), zap.Error(err))
		}
	}
	return nil
}
