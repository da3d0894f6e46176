package cookiecloud

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cookiesync/internal/engine"
)

// encryptPayload is the inverse of decryptPayload: the OpenSSL salted
// AES-256-CBC format the browser extension uploads.
func encryptPayload(t *testing.T, pass string, plain []byte) string {
	t.Helper()
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		t.Fatal(err)
	}
	key, iv := evpKDF([]byte(pass), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	padLen := aes.BlockSize - len(plain)%aes.BlockSize
	padded := make([]byte, len(plain)+padLen)
	copy(padded, plain)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	raw := append([]byte(opensslSaltHeader), salt...)
	raw = append(raw, out...)
	return base64.StdEncoding.EncodeToString(raw)
}

func serveEncrypted(t *testing.T, uuid, password string, data map[string]any) *httptest.Server {
	t.Helper()
	plain, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	encrypted := encryptPayload(t, passphrase(uuid, password), plain)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get/"+uuid {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"encrypted": encrypted})
	}))
}

func samplePayload() map[string]any {
	return map[string]any{
		"cookie_data": map[string]any{
			".douyin.com": []map[string]string{
				{"name": "sessionid", "value": "abc", "domain": ".douyin.com"},
				{"name": "ttwid", "value": "123", "domain": ".douyin.com"},
			},
			"www.bilibili.com": []map[string]string{
				{"name": "SESSDATA", "value": "zzz", "domain": ".bilibili.com"},
			},
		},
		"update_time": "2026-08-29T10:00:00",
	}
}

func TestCryptoRoundTrip(t *testing.T) {
	pass := passphrase("test-uuid", "test-password")
	plain := []byte(`{"cookie_data":{}}`)
	got, err := decryptPayload(pass, encryptPayload(t, pass, plain))
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(got) != string(plain) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc := encryptPayload(t, passphrase("u", "right"), []byte(`{"cookie_data":{}}`))
	if _, err := decryptPayload(passphrase("u", "wrong"), enc); err == nil {
		t.Fatal("expected decrypt failure with wrong passphrase")
	}
}

func TestFetchDomainMatchesScopedCookies(t *testing.T) {
	srv := serveEncrypted(t, "test-uuid", "test-password", samplePayload())
	defer srv.Close()

	c := NewClient(srv.URL, "test-uuid", "test-password", 5*time.Second)
	cookies, err := c.FetchDomain(context.Background(), "douyin.com")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if engine.SerializeCookies(cookies) != "sessionid=abc; ttwid=123" {
		t.Fatalf("unexpected cookies: %v", cookies)
	}
}

func TestFetchDomainIgnoresUnrelatedDomains(t *testing.T) {
	srv := serveEncrypted(t, "test-uuid", "test-password", samplePayload())
	defer srv.Close()

	c := NewClient(srv.URL, "test-uuid", "test-password", 5*time.Second)
	cookies, err := c.FetchDomain(context.Background(), "tiktok.com")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(cookies) != 0 {
		t.Fatalf("expected no cookies for tiktok.com, got %v", cookies)
	}
}

func TestFetchDomainWrongPassword(t *testing.T) {
	srv := serveEncrypted(t, "test-uuid", "right", samplePayload())
	defer srv.Close()

	c := NewClient(srv.URL, "test-uuid", "wrong", 5*time.Second)
	_, err := c.FetchDomain(context.Background(), "douyin.com")
	if !errors.Is(err, engine.ErrRemoteAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestFetchDomainServerErrors(t *testing.T) {
	cases := []struct {
		name string
		code int
		want error
	}{
		{"unauthorized", http.StatusUnauthorized, engine.ErrRemoteAuthFailed},
		{"not found", http.StatusNotFound, engine.ErrRemoteAuthFailed},
		{"server error", http.StatusInternalServerError, engine.ErrRemoteUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "u", "p", 5*time.Second)
			_, err := c.FetchDomain(context.Background(), "douyin.com")
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFetchDomainTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", 50*time.Millisecond)
	_, err := c.FetchDomain(context.Background(), "douyin.com")
	if !errors.Is(err, engine.ErrRemoteUnavailable) {
		t.Fatalf("timeout should map to remote-unavailable, got %v", err)
	}
}

func TestCheckSummarizesServerData(t *testing.T) {
	srv := serveEncrypted(t, "test-uuid", "test-password", samplePayload())
	defer srv.Close()

	c := NewClient(srv.URL, "test-uuid", "test-password", 5*time.Second)
	info, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if info.TotalDomains != 2 || info.TotalCookies != 3 {
		t.Fatalf("unexpected summary: %+v", info)
	}
	if info.UpdateTime != "2026-08-29T10:00:00" {
		t.Fatalf("update time: %q", info.UpdateTime)
	}
	if len(info.SampleDomains) != 2 || info.SampleDomains[0] != ".douyin.com" {
		t.Fatalf("sample domains: %v", info.SampleDomains)
	}
}

func TestDomainMatches(t *testing.T) {
	cases := []struct {
		cookieDomain string
		target       string
		want         bool
	}{
		{"douyin.com", "douyin.com", true},
		{".douyin.com", "douyin.com", true},
		{"www.douyin.com", "douyin.com", true},
		{".com", "douyin.com", true},
		{"bilibili.com", "douyin.com", false},
		{"", "douyin.com", false},
	}
	for _, tc := range cases {
		if got := domainMatches(tc.cookieDomain, tc.target); got != tc.want {
			t.Errorf("domainMatches(%q, %q) = %t, want %t", tc.cookieDomain, tc.target, got, tc.want)
		}
	}
}

func TestFetchDecryptedMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", 5*time.Second)
	_, err := c.FetchDomain(context.Background(), "douyin.com")
	if !errors.Is(err, engine.ErrRemoteUnavailable) {
		t.Fatalf("malformed body should map to remote-unavailable, got %v", err)
	}
}
