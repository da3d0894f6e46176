package engine

import "time"

// Platform identifies one crawler target that needs a session cookie.
type Platform struct {
	// ID is the stable short name, e.g. "douyin".
	ID string
	// Domain is the cookie-scoping domain used to query the remote source.
	Domain string
	// ConfigPath is the persisted configuration artifact holding the cookie.
	ConfigPath string
	// CookieKey is the dotted path to the cookie field inside the artifact,
	// e.g. "TokenManager.douyin.headers.Cookie".
	CookieKey string
}

// Source names where a resolved cookie value came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Cookie is one name=value pair as returned by the remote source.
// Order is preserved so that serialization is deterministic.
type Cookie struct {
	Name  string
	Value string
}

// Entry is one cached resolution for a platform. Entries are passed by
// value; staleness is computed lazily at read time, never swept.
type Entry struct {
	Value     string    `json:"value"`
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fresh reports whether the entry is still within ttl at the given time.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// Status classifies the result of resolving one platform.
type Status string

const (
	StatusUpdated      Status = "updated"
	StatusUnchanged    Status = "unchanged"
	StatusFallbackUsed Status = "fallback_used"
	StatusFailed       Status = "failed"
)

// Outcome is the per-platform result of one refresh. Reporting only,
// never persisted.
type Outcome struct {
	PlatformID string `json:"platform_id"`
	// Cycle correlates every outcome of one Refresh call with its log lines.
	Cycle          string `json:"cycle,omitempty"`
	Status         Status `json:"status"`
	Message        string `json:"message,omitempty"`
	PreviousSource Source `json:"previous_source,omitempty"`
	NewSource      Source `json:"new_source,omitempty"`
}

// PlatformStatus summarizes the cache state of one platform without
// touching the network or disk.
type PlatformStatus struct {
	PlatformID       string    `json:"platform_id"`
	Cached           bool      `json:"cached"`
	Source           Source    `json:"source,omitempty"`
	AgeSeconds       int64     `json:"cache_age_seconds"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Fresh            bool      `json:"is_valid"`
	LastUpdate       time.Time `json:"last_update,omitzero"`
}

// ConnectionInfo is the diagnostic summary of one remote round trip.
type ConnectionInfo struct {
	TotalDomains  int      `json:"total_domains"`
	TotalCookies  int      `json:"total_cookies"`
	UpdateTime    string   `json:"update_time,omitempty"`
	SampleDomains []string `json:"sample_domains,omitempty"`
}
