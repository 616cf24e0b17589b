package auth

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/puzzlink/puzzlink-server/internal/channel"
)

var (
	// ErrMalformedRequest is returned when connection id or channel name is empty or invalid.
	ErrMalformedRequest = errors.New("malformed authorization request")
	// ErrSigningUnavailable is returned when no signing secret is configured.
	ErrSigningUnavailable = errors.New("token signing unavailable")
	// ErrTokenInvalid is returned when a subscribe token fails validation.
	ErrTokenInvalid = errors.New("invalid subscribe token")
	// ErrBindingMismatch is returned when a valid token is presented for a
	// different connection or channel than it was issued for.
	ErrBindingMismatch = errors.New("token not issued for this connection and channel")
)

// Identity is the presence identity bound into a subscribe token.
type Identity struct {
	UserID string         `json:"user_id"`
	Info   map[string]any `json:"info,omitempty"`
}

// Grant is the result of a successful authorization: the signed token plus
// the identity it carries (synthesized if the caller supplied none).
type Grant struct {
	Token    string
	Identity Identity
}

// Authorizer mints subscribe tokens scoped to exactly one connection+channel
// pair. It is stateless; every call computes a fresh token.
type Authorizer struct {
	cfg *JWTConfig
}

// NewAuthorizer creates an authorizer with the given signing configuration.
func NewAuthorizer(cfg *JWTConfig) *Authorizer {
	return &Authorizer{cfg: cfg}
}

// Authorize validates the request and returns a signed grant. A nil or empty
// identity never fails the call: the product supports anonymous instant
// participation, so a synthetic identity is minted instead.
func (a *Authorizer) Authorize(connectionID, channelName string, identity *Identity) (*Grant, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("%w: empty connection id", ErrMalformedRequest)
	}
	if !channel.Valid(channelName) {
		return nil, fmt.Errorf("%w: bad channel name %q", ErrMalformedRequest, channelName)
	}
	if len(a.cfg.Secret) == 0 {
		return nil, ErrSigningUnavailable
	}

	resolved := resolveIdentity(identity)

	token, err := signToken(a.cfg, connectionID, channelName, resolved)
	if err != nil {
		return nil, fmt.Errorf("sign subscribe token: %w", err)
	}

	return &Grant{Token: token, Identity: resolved}, nil
}

// VerifySubscription checks that token was issued for exactly this
// connection+channel pair and returns the identity it carries. The transport
// calls this before admitting a subscriber to an auth-requiring channel.
func (a *Authorizer) VerifySubscription(token, connectionID, channelName string) (*Identity, error) {
	if len(a.cfg.Secret) == 0 {
		return nil, ErrSigningUnavailable
	}

	claims, err := parseToken(a.cfg, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.ConnectionID != connectionID || claims.Channel != channelName {
		return nil, ErrBindingMismatch
	}

	return &Identity{UserID: claims.UserID, Info: claims.UserInfo}, nil
}

// resolveIdentity returns the caller-provided identity as-is, or a synthetic
// anonymous one when none (or an empty one) was supplied.
func resolveIdentity(identity *Identity) Identity {
	if identity != nil && identity.UserID != "" {
		return *identity
	}
	return Identity{UserID: "anon-" + uuid.NewString()}
}
