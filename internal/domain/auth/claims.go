package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedCredential is returned when a credential cannot be decoded into claims.
var ErrMalformedCredential = errors.New("malformed credential")

// Claims is the flat key/value payload of a credential.
type Claims map[string]any

// segmentParser only decodes segments; it never verifies signatures.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// urlAlphabet folds the standard base64 alphabet into the URL-safe one.
var urlAlphabet = strings.NewReplacer("+", "-", "/", "_")

// DecodeClaims reads the payload segment of a header.payload.signature credential.
// The signature is not verified: the result is a best-effort local read for display and
// routing decisions only. Both base64 alphabets are accepted in the payload.
func DecodeClaims(credential string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(credential), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected header.payload.signature", ErrMalformedCredential)
	}

	payload, err := segmentParser.DecodeSegment(urlAlphabet.Replace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", ErrMalformedCredential, err)
	}
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedCredential)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: parse payload: %w", ErrMalformedCredential, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedCredential)
	}

	return Claims(claims), nil
}

// String returns the first non-empty string value found under keys, in order.
// Array values contribute their first string element.
func (c Claims) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := c[k]
		if !ok {
			continue
		}
		if s, ok := StringValue(v); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// ExpiresAt returns the exp claim, or the zero time when absent or unreadable.
func (c Claims) ExpiresAt() time.Time {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// StringValue extracts a string from a decoded claim value. Arrays yield their
// first non-empty string element.
func StringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				return s, true
			}
		}
	case []string:
		for _, s := range t {
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// Claim key candidates, tried in order. Providers disagree on naming, so each field
// is a small tagged lookup table rather than a single key.
var (
	IDClaimKeys = []string{
		"nameid",
		"sub",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
	}
	EmailClaimKeys = []string{
		"email",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
	}
	UsernameClaimKeys = []string{
		"unique_name",
		"username",
		"name",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
	}
	DisplayNameClaimKeys = []string{"FullName", "fullName", "given_name"}
	AvatarClaimKeys      = []string{"Avatar", "avatar", "picture"}
)

// IdentityFromClaims builds an Identity using role as the already-mapped role.
// Missing profile claims leave the matching fields empty; any decoded payload yields an Identity.
func IdentityFromClaims(c Claims, role Role) Identity {
	email, _ := c.String(EmailClaimKeys...)
	username, ok := c.String(UsernameClaimKeys...)
	if !ok {
		username = email
	}
	id, ok := c.String(IDClaimKeys...)
	if !ok {
		id = email
		if id == "" {
			id = username
		}
	}

	if !role.IsValid() {
		role = MapRole(string(role))
	}

	ident := Identity{
		ID:       id,
		Email:    email,
		Username: username,
		Role:     role,
	}
	if v, ok := c.String(DisplayNameClaimKeys...); ok {
		ident.DisplayName = &v
	}
	if v, ok := c.String(AvatarClaimKeys...); ok {
		ident.Avatar = &v
	}
	return ident
}
