// Package cookiecloud talks to a CookieCloud synchronization server and
// resolves its encrypted payload into domain-scoped cookies.
package cookiecloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"cookiesync/internal/engine"
)

// Client fetches and decrypts cookie data for one CookieCloud account.
type Client struct {
	serverURL string
	uuid      string
	password  string
	httpc     *http.Client
}

func NewClient(serverURL, uuid, password string, timeout time.Duration) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		uuid:      uuid,
		password:  password,
		httpc:     &http.Client{Timeout: timeout},
	}
}

type cookieRecord struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

type payload struct {
	CookieData map[string][]cookieRecord `json:"cookie_data"`
	UpdateTime string                    `json:"update_time"`
}

// FetchDomain returns the cookies scoped to domain, preserving server
// order. Cookies stored under unrelated domains are ignored.
func (c *Client) FetchDomain(ctx context.Context, domain string) ([]engine.Cookie, error) {
	data, err := c.fetchDecrypted(ctx)
	if err != nil {
		return nil, err
	}
	target := strings.ToLower(strings.TrimSpace(domain))

	// Stable iteration so the serialized cookie string is deterministic
	// across fetches of the same payload.
	storedDomains := make([]string, 0, len(data.CookieData))
	for d := range data.CookieData {
		storedDomains = append(storedDomains, d)
	}
	sort.Strings(storedDomains)

	var out []engine.Cookie
	for _, storedDomain := range storedDomains {
		if storedDomain == "update_time" {
			continue
		}
		for _, rec := range data.CookieData[storedDomain] {
			if domainMatches(rec.Domain, target) && rec.Name != "" {
				out = append(out, engine.Cookie{Name: rec.Name, Value: rec.Value})
			}
		}
	}
	return out, nil
}

// Check performs one round trip and summarizes what the server holds.
func (c *Client) Check(ctx context.Context) (engine.ConnectionInfo, error) {
	data, err := c.fetchDecrypted(ctx)
	if err != nil {
		return engine.ConnectionInfo{}, err
	}

	type domainCount struct {
		domain string
		count  int
	}
	var counts []domainCount
	total := 0
	for domain, records := range data.CookieData {
		if domain == "update_time" {
			continue
		}
		counts = append(counts, domainCount{domain: domain, count: len(records)})
		total += len(records)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].domain < counts[j].domain
	})

	info := engine.ConnectionInfo{
		TotalDomains: len(counts),
		TotalCookies: total,
		UpdateTime:   data.UpdateTime,
	}
	for i := 0; i < len(counts) && i < 5; i++ {
		info.SampleDomains = append(info.SampleDomains, counts[i].domain)
	}
	return info, nil
}

func (c *Client) fetchDecrypted(ctx context.Context) (payload, error) {
	url := fmt.Sprintf("%s/get/%s", c.serverURL, c.uuid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return payload{}, fmt.Errorf("%w: %v", engine.ErrRemoteUnavailable, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return payload{}, fmt.Errorf("%w: %v", engine.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return payload{}, fmt.Errorf("%w: server returned %d", engine.ErrRemoteAuthFailed, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return payload{}, fmt.Errorf("%w: unexpected status %d", engine.ErrRemoteUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload{}, fmt.Errorf("%w: read response: %v", engine.ErrRemoteUnavailable, err)
	}

	var envelope struct {
		Encrypted string `json:"encrypted"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return payload{}, fmt.Errorf("%w: malformed response: %v", engine.ErrRemoteUnavailable, err)
	}
	if envelope.Encrypted == "" {
		return payload{}, fmt.Errorf("%w: response carries no encrypted data", engine.ErrRemoteEmptyResult)
	}

	// A failed decrypt means the uuid/password pair does not match what
	// the browser extension encrypted with.
	plain, err := decryptPayload(passphrase(c.uuid, c.password), envelope.Encrypted)
	if err != nil {
		return payload{}, fmt.Errorf("%w: decrypt: %v", engine.ErrRemoteAuthFailed, err)
	}

	var data payload
	if err := json.Unmarshal(plain, &data); err != nil {
		return payload{}, fmt.Errorf("%w: decrypted payload is not valid JSON: %v", engine.ErrRemoteAuthFailed, err)
	}
	return data, nil
}

// domainMatches applies the loose matching the browser extension stores
// cookies with: exact, dot-prefixed, or suffix relationships all count.
func domainMatches(cookieDomain, target string) bool {
	cd := strings.ToLower(strings.TrimSpace(cookieDomain))
	if cd == "" || target == "" {
		return false
	}
	trimmed := strings.TrimPrefix(cd, ".")
	switch {
	case cd == target, cd == "."+target, trimmed == target:
		return true
	case strings.Contains(cd, target):
		return true
	case strings.HasSuffix(target, trimmed):
		return true
	}
	return false
}

var _ engine.RemoteSource = (*Client)(nil)
