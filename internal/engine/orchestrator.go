package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConfigWriter applies a resolved cookie value to a platform's persisted
// configuration. Apply reports whether a write actually happened; an
// identical persisted value is a no-op.
type ConfigWriter interface {
	Apply(platform Platform, value string) (written bool, err error)
}

// Orchestrator coordinates resolution and config writes across platforms.
// Platforms are processed independently: one failure never aborts the rest.
type Orchestrator struct {
	platforms []Platform
	index     map[string]Platform
	policy    *Policy
	writer    ConfigWriter
	cache     Cache
	remote    RemoteSource
	ttl       time.Duration
	timeout   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewOrchestrator(platforms []Platform, policy *Policy, writer ConfigWriter, cache Cache, remote RemoteSource, ttl, timeout time.Duration) *Orchestrator {
	index := make(map[string]Platform, len(platforms))
	for _, p := range platforms {
		index[p.ID] = p
	}
	return &Orchestrator{
		platforms: platforms,
		index:     index,
		policy:    policy,
		writer:    writer,
		cache:     cache,
		remote:    remote,
		ttl:       ttl,
		timeout:   timeout,
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// Platforms returns the configured platform registry.
func (o *Orchestrator) Platforms() []Platform {
	out := make([]Platform, len(o.platforms))
	copy(out, o.platforms)
	return out
}

// Refresh resolves and persists cookies for the given platform IDs, or for
// every known platform when ids is empty. Work runs in parallel across
// platforms; per-platform work is serialized against concurrent callers.
func (o *Orchestrator) Refresh(ctx context.Context, ids []string, force bool) map[string]Outcome {
	targets, unknown := o.resolveTargets(ids)

	cycle := uuid.NewString()[:8]
	log.Printf("cookiesync: cycle %s refreshing %d platform(s) force=%t", cycle, len(targets), force)

	results := make(map[string]Outcome, len(targets)+len(unknown))
	for _, id := range unknown {
		results[id] = Outcome{
			PlatformID: id,
			Cycle:      cycle,
			Status:     StatusFailed,
			Message:    fmt.Sprintf("%v: %s", ErrUnknownPlatform, id),
		}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range targets {
		wg.Add(1)
		go func(p Platform) {
			defer wg.Done()
			out := o.refreshOne(ctx, p, force)
			out.Cycle = cycle
			mu.Lock()
			results[p.ID] = out
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	for id, out := range results {
		if out.Status == StatusFailed {
			log.Printf("cookiesync: cycle %s platform %s failed: %s", cycle, id, out.Message)
		}
	}
	return results
}

func (o *Orchestrator) refreshOne(ctx context.Context, platform Platform, force bool) Outcome {
	lock := o.platformLock(platform.ID)
	lock.Lock()
	defer lock.Unlock()

	outcome := Outcome{PlatformID: platform.ID}
	if prev, ok := o.cache.Get(platform.ID); ok {
		outcome.PreviousSource = prev.Source
	}

	rctx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res := o.policy.Resolve(rctx, platform, force)
	outcome.Status = res.Status
	outcome.NewSource = res.Source
	if res.Status == StatusFailed {
		outcome.Message = res.Err.Error()
		return outcome
	}
	if res.Status == StatusUnchanged {
		return outcome
	}

	// Cancellation is advisory at the cycle level only: once resolution
	// succeeded, the write runs to completion.
	written, err := o.writer.Apply(platform, res.Value)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Message = fmt.Sprintf("config write failed: %v", err)
		return outcome
	}
	if !written {
		outcome.Status = StatusUnchanged
		outcome.Message = "persisted value already current"
	}
	return outcome
}

// Status reports the cache summary for every known platform. It never
// touches the network or disk.
func (o *Orchestrator) Status() []PlatformStatus {
	now := o.now()
	out := make([]PlatformStatus, 0, len(o.platforms))
	for _, p := range o.platforms {
		st := PlatformStatus{PlatformID: p.ID}
		if entry, ok := o.cache.Get(p.ID); ok {
			age := now.Sub(entry.FetchedAt)
			remaining := o.ttl - age
			if remaining < 0 {
				remaining = 0
			}
			st.Cached = true
			st.Source = entry.Source
			st.AgeSeconds = int64(age.Seconds())
			st.RemainingSeconds = int64(remaining.Seconds())
			st.Fresh = entry.Fresh(now, o.ttl)
			st.LastUpdate = entry.FetchedAt
		}
		out = append(out, st)
	}
	return out
}

// TestConnection performs one diagnostic round trip against the remote
// source without mutating cache or config.
func (o *Orchestrator) TestConnection(ctx context.Context) (ConnectionInfo, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.remote.Check(ctx)
}

// ClearCache invalidates cached entries for the given platform IDs, or the
// whole cache when ids is empty.
func (o *Orchestrator) ClearCache(ids []string) error {
	if len(ids) == 0 {
		o.cache.InvalidateAll()
		return nil
	}
	for _, id := range ids {
		if _, ok := o.index[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlatform, id)
		}
	}
	for _, id := range ids {
		o.cache.Invalidate(id)
	}
	return nil
}

func (o *Orchestrator) resolveTargets(ids []string) (targets []Platform, unknown []string) {
	if len(ids) == 0 {
		return o.Platforms(), nil
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := o.index[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		targets = append(targets, p)
	}
	return targets, unknown
}

func (o *Orchestrator) platformLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}
