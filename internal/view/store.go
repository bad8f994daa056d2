// Package view maintains an in-process, paginated materialisation of the
// submission listing for a rendering layer. It applies moderation actions
// optimistically before the server confirms them and reconciles with server
// truth afterwards, so the review UI stays responsive without ever showing an
// unconfirmed mutation for longer than one round-trip.
package view

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fanvue/moderation-api/internal/models"
)

// Fetcher loads one page of submissions for a filter. cursor is empty for the
// first page.
type Fetcher interface {
	FetchPage(ctx context.Context, filter models.ListFilter, cursor string) (*models.Page, error)
}

// Actor applies a moderation action to a submission on the server.
type Actor interface {
	Apply(ctx context.Context, appID string, action models.Action) (*models.Submission, error)
}

// Phase is the lifecycle of a submitted moderation action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

// MutationState tracks one in-flight or settled action per submission.
// Snapshot holds the row as it looked before the optimistic rewrite.
type MutationState struct {
	Phase    Phase
	Action   models.Action
	Snapshot *models.Submission
	Err      error
}

// entry holds the accumulated pages for one filter key. The generation counter
// supersedes in-flight fetches: a response carrying a stale generation is
// discarded instead of clobbering newer optimistic or confirmed state.
type entry struct {
	filter     models.ListFilter
	pages      []models.Page
	generation uint64
	nextCursor string
	hasNext    bool
	lastErr    error
}

// Store is the client-side cache and mutation layer. All state is guarded by
// one mutex; network calls happen outside it.
type Store struct {
	mu        sync.Mutex
	fetcher   Fetcher
	actor     Actor
	entries   map[string]*entry
	mutations map[string]*MutationState

	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	focus    chan struct{}
}

// NewStore constructs a Store polling at the given interval.
func NewStore(fetcher Fetcher, actor Actor, interval time.Duration, logger *zap.Logger) *Store {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		fetcher:   fetcher,
		actor:     actor,
		entries:   make(map[string]*entry),
		mutations: make(map[string]*MutationState),
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		focus:     make(chan struct{}, 1),
	}
}

// Key canonicalises a filter into its cache key. Any change to any filter
// field yields a different key; entries are never merged across filters.
func Key(filter models.ListFilter) string {
	statuses := make([]string, len(filter.Statuses))
	for i, st := range filter.Statuses {
		statuses[i] = string(st)
	}
	sort.Strings(statuses)
	categories := make([]string, len(filter.Categories))
	for i, cat := range filter.Categories {
		categories[i] = string(cat)
	}
	sort.Strings(categories)

	return fmt.Sprintf("search=%s|status=%s|category=%s|sort=%s:%s",
		strings.ToLower(strings.TrimSpace(filter.Search)),
		strings.Join(statuses, ","),
		strings.Join(categories, ","),
		filter.SortBy,
		filter.SortOrder,
	)
}

// Load fetches the first page for the filter, discarding any pages previously
// accumulated under the same key. A newly seen filter starts empty.
func (s *Store) Load(ctx context.Context, filter models.ListFilter) error {
	key := Key(filter)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{filter: filter}
		s.entries[key] = e
	}
	e.generation++
	gen := e.generation
	s.mu.Unlock()

	return s.fetch(ctx, key, gen, "", true)
}

// LoadMore appends the next page for the filter in fetch order. It is a no-op
// when no further page is known.
func (s *Store) LoadMore(ctx context.Context, filter models.ListFilter) error {
	key := Key(filter)

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || !e.hasNext {
		s.mu.Unlock()
		return nil
	}
	gen := e.generation
	cursor := e.nextCursor
	s.mu.Unlock()

	return s.fetch(ctx, key, gen, cursor, false)
}

// fetch runs the network call outside the lock, then applies the result only
// if the entry's generation is still the one observed at the start.
func (s *Store) fetch(ctx context.Context, key string, gen uint64, cursor string, reset bool) error {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.generation != gen {
		s.mu.Unlock()
		return nil
	}
	filter := e.filter
	s.mu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, filter, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok = s.entries[key]
	if !ok || e.generation != gen {
		// Superseded by a newer fetch or an optimistic write; drop the result.
		return nil
	}
	if err != nil {
		e.lastErr = err
		s.logger.Warn("view fetch failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if reset {
		e.pages = e.pages[:0]
	}
	e.pages = append(e.pages, *page)
	e.nextCursor = page.Pagination.NextCursor
	e.hasNext = page.Pagination.HasNextPage
	e.lastErr = nil
	return nil
}

// Submissions returns a flattened snapshot of every page cached for the filter.
func (s *Store) Submissions(filter models.ListFilter) []models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[Key(filter)]
	if !ok {
		return nil
	}
	var out []models.Submission
	for _, page := range e.pages {
		out = append(out, page.Data...)
	}
	return out
}

// HasNextPage reports whether another page is known to exist for the filter.
func (s *Store) HasNextPage(filter models.ListFilter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[Key(filter)]
	return ok && e.hasNext
}

// Err returns the last fetch error for the filter, cleared by the next
// successful fetch.
func (s *Store) Err(filter models.ListFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[Key(filter)]; ok {
		return e.lastErr
	}
	return nil
}

// Mutation returns the mutation state for a submission.
func (s *Store) Mutation(appID string) MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.mutations[appID]; ok {
		return *st
	}
	return MutationState{Phase: PhaseIdle}
}

// Submit applies a moderation action. The targeted submission is rewritten
// locally across every cached entry before the server call resolves, and each
// entry's generation is bumped so late-arriving stale reads cannot clobber the
// optimistic state. On success and on failure alike the cached pages are
// invalidated and refetched, reconciling with server truth.
func (s *Store) Submit(ctx context.Context, appID string, action models.Action) (*models.Submission, error) {
	s.mu.Lock()
	var snapshot *models.Submission
	for _, e := range s.entries {
		e.generation++
		for pi := range e.pages {
			for si := range e.pages[pi].Data {
				if e.pages[pi].Data[si].ID != appID {
					continue
				}
				if snapshot == nil {
					prior := e.pages[pi].Data[si]
					snapshot = &prior
				}
				e.pages[pi].Data[si].Status = action.TargetStatus()
				e.pages[pi].Data[si].UpdatedAt = s.now()
			}
		}
	}
	s.mutations[appID] = &MutationState{Phase: PhasePending, Action: action, Snapshot: snapshot}
	s.mu.Unlock()

	sub, err := s.actor.Apply(ctx, appID, action)

	s.mu.Lock()
	if st, ok := s.mutations[appID]; ok {
		if err != nil {
			st.Phase = PhaseFailed
			st.Err = err
		} else {
			st.Phase = PhaseSucceeded
			st.Err = nil
		}
	}
	s.mu.Unlock()

	s.refreshAll(ctx)
	return sub, err
}

// Focus requests an immediate refresh, as when the dashboard regains
// foreground focus. Non-blocking; coalesces with a pending request.
func (s *Store) Focus() {
	select {
	case s.focus <- struct{}{}:
	default:
	}
}

// Run refreshes every live filter key on the polling interval and on focus
// until the context is cancelled. Bounds staleness to roughly the interval.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		case <-s.focus:
			s.refreshAll(ctx)
		}
	}
}

// refreshAll refetches the first page of every entry, superseding whatever was
// in flight for each key.
func (s *Store) refreshAll(ctx context.Context) {
	s.mu.Lock()
	type target struct {
		key string
		gen uint64
	}
	targets := make([]target, 0, len(s.entries))
	for key, e := range s.entries {
		e.generation++
		targets = append(targets, target{key: key, gen: e.generation})
	}
	s.mu.Unlock()

	for _, t := range targets {
		if err := s.fetch(ctx, t.key, t.gen, "", true); err != nil && ctx.Err() != nil {
			return
		}
	}
}
