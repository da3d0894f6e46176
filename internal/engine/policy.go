package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RemoteSource is the remote cookie-synchronization service contract.
// Transport and decryption details belong to the implementation.
type RemoteSource interface {
	// FetchDomain returns the cookies scoped to domain, in server order.
	FetchDomain(ctx context.Context, domain string) ([]Cookie, error)
	// Check performs a lightweight round trip for diagnostics.
	Check(ctx context.Context) (ConnectionInfo, error)
}

// FallbackRegistry exposes the operator-supplied static cookie values.
type FallbackRegistry interface {
	Fallback(platformID string) (string, bool)
}

// Resolution is the authoritative answer of the policy for one platform.
type Resolution struct {
	Value  string
	Source Source
	Status Status
	Err    error
}

// Policy decides, per refresh request, which cookie source wins. It owns
// the cache: nothing else writes entries.
type Policy struct {
	cache           Cache
	remote          RemoteSource
	fallbacks       FallbackRegistry
	ttl             time.Duration
	fallbackEnabled bool

	now func() time.Time
}

func NewPolicy(cache Cache, remote RemoteSource, fallbacks FallbackRegistry, ttl time.Duration, fallbackEnabled bool) *Policy {
	return &Policy{
		cache:           cache,
		remote:          remote,
		fallbacks:       fallbacks,
		ttl:             ttl,
		fallbackEnabled: fallbackEnabled,
		now:             time.Now,
	}
}

// Resolve runs the three-step resolution: fresh cache, then remote, then
// fallback. Remote failures never surface as hard errors here; only total
// exhaustion yields StatusFailed.
func (p *Policy) Resolve(ctx context.Context, platform Platform, force bool) Resolution {
	if !force {
		if entry, ok := p.cache.Get(platform.ID); ok && entry.Fresh(p.now(), p.ttl) {
			return Resolution{Value: entry.Value, Source: entry.Source, Status: StatusUnchanged}
		}
	}

	cookies, err := p.remote.FetchDomain(ctx, platform.Domain)
	if err == nil && len(cookies) == 0 {
		// A syntactically present but empty cookie set would cache an
		// unusable session.
		err = fmt.Errorf("%w: %s", ErrRemoteEmptyResult, platform.Domain)
	}
	if err == nil {
		value := SerializeCookies(cookies)
		p.cache.Put(platform.ID, Entry{Value: value, Source: SourceRemote, FetchedAt: p.now()})
		return Resolution{Value: value, Source: SourceRemote, Status: StatusUpdated}
	}

	if !p.fallbackEnabled {
		return Resolution{Status: StatusFailed, Err: fmt.Errorf("%w; fallback disabled: %w", err, ErrFallbackUnavailable)}
	}
	value, ok := p.fallbacks.Fallback(platform.ID)
	if !ok || value == "" {
		return Resolution{Status: StatusFailed, Err: fmt.Errorf("%w; %w for %s", err, ErrFallbackUnavailable, platform.ID)}
	}
	p.cache.Put(platform.ID, Entry{Value: value, Source: SourceFallback, FetchedAt: p.now()})
	return Resolution{Value: value, Source: SourceFallback, Status: StatusFallbackUsed}
}

// SerializeCookies renders cookies in the "name=value; name=value" form
// crawler configurations expect. Pairs with an empty name are dropped.
func SerializeCookies(cookies []Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}
