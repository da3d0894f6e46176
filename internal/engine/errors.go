package engine

import "errors"

var (
	// ErrRemoteUnavailable covers network failures and timeouts talking to
	// the remote cookie source.
	ErrRemoteUnavailable = errors.New("remote cookie source unavailable")
	// ErrRemoteAuthFailed covers credential or decryption failures.
	ErrRemoteAuthFailed = errors.New("remote cookie source authentication failed")
	// ErrRemoteEmptyResult means the remote source answered but held no
	// usable cookies for the requested domain.
	ErrRemoteEmptyResult = errors.New("remote cookie source returned no cookies for domain")
	// ErrFallbackUnavailable means no fallback value is configured for the
	// platform, or fallback use is disabled.
	ErrFallbackUnavailable = errors.New("no fallback cookie available")
	// ErrUnknownPlatform is returned for a platform ID outside the registry.
	ErrUnknownPlatform = errors.New("unknown platform")
)
