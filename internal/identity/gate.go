// Package identity resolves inbound bearer credentials into trusted
// user identities.  Decoding a token is not authentication: a token
// that parses and verifies is still rejected unless the identity it
// names is currently known to the user store, which is the sole trust
// anchor.  The gate performs read-only lookups and has no side
// effects.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/studio-class-booking/internal/model"
)

// ErrMissingCredential is returned when no credential was supplied.
var ErrMissingCredential = errors.New("missing credential")

// ErrMalformedCredential is returned when the credential envelope is
// wrong: bad scheme prefix or wrong segment count.
var ErrMalformedCredential = errors.New("malformed credential")

// ErrUndecodableCredential is returned when the envelope looks right
// but the payload cannot be parsed or its signature does not verify.
var ErrUndecodableCredential = errors.New("undecodable credential")

// ErrUnknownIdentity is returned when the decoded identity is not in
// the known-user set (deleted or deactivated accounts included).
var ErrUnknownIdentity = errors.New("unknown identity")

// Resolver answers whether an identity is currently known.  The MySQL
// user repository satisfies it in production; tests use a map.
type Resolver interface {
	ResolveIdentity(ctx context.Context, userID uint64) (model.UserIdentity, error)
}

// Gate validates HS256 bearer tokens issued by the auth subsystem and
// resolves their subject against the known-user set.  It implements
// booking.Gate.
type Gate struct {
	secret []byte
	users  Resolver
}

// NewGate builds a Gate from the shared signing secret and a resolver.
func NewGate(secret string, users Resolver) *Gate {
	if users == nil {
		panic("nil resolver passed to identity.NewGate")
	}
	return &Gate{secret: []byte(secret), users: users}
}

// Authenticate checks the credential envelope, verifies the token and
// resolves the subject.  Each failure condition surfaces as its own
// sentinel so callers can report a precise rejection reason; none of
// them ever yields a usable identity.
//
// The credential is the full Authorization header value, e.g.
// "Bearer eyJ...".
func (g *Gate) Authenticate(ctx context.Context, credential string) (model.UserIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return model.UserIdentity{}, ErrMissingCredential
	}
	if !strings.HasPrefix(credential, "Bearer ") {
		return model.UserIdentity{}, ErrMalformedCredential
	}
	raw := strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if raw == "" || strings.Count(raw, ".") != 2 {
		return model.UserIdentity{}, ErrMalformedCredential
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUndecodableCredential
		}
		return g.secret, nil
	})
	if err != nil || !tok.Valid {
		return model.UserIdentity{}, ErrUndecodableCredential
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.UserIdentity{}, ErrUndecodableCredential
	}
	uid, ok := subjectID(claims)
	if !ok {
		return model.UserIdentity{}, ErrUndecodableCredential
	}

	// Final authenticity check against the trust anchor: the subject
	// must still be a known, active user.
	ident, err := g.users.ResolveIdentity(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return model.UserIdentity{}, ErrUnknownIdentity
		}
		return model.UserIdentity{}, err
	}
	return ident, nil
}

// subjectID extracts the numeric subject from the claims.  Tokens are
// issued with a numeric sub, but JSON decoding hands it back as
// float64, so both forms are accepted.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
	switch v := claims["sub"].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}
