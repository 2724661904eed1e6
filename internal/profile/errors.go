package profile

import "errors"

// Sentinel errors
var (
	ErrUnknownNetwork = errors.New("profile: unknown network")
	ErrMissingRole    = errors.New("profile: role not configured")
	ErrInvalidRole    = errors.New("profile: invalid role account")
	ErrNoSigner       = errors.New("profile: no signing key configured")
	ErrMalformedTable = errors.New("profile: malformed configuration table")
)
