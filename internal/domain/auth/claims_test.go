package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestDecodeClaims_Valid(t *testing.T) {
	token := makeToken(t, map[string]any{
		"sub":   "user-1",
		"email": "koi@example.com",
		"role":  "Manager",
	})

	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "Manager", claims["role"])
}

func TestDecodeClaims_PaddedPayload(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte(`{"sub":"u"}`))
	require.True(t, strings.HasSuffix(body, "="), "fixture should carry padding")

	claims, err := DecodeClaims("h." + body + ".s")
	require.NoError(t, err)
	assert.Equal(t, "u", claims["sub"])
}

func TestDecodeClaims_MultiByteCharacters(t *testing.T) {
	token := makeToken(t, map[string]any{"sub": "u", "unique_name": "Nguyễn Văn Cá Koi 鯉"})

	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn Cá Koi 鯉", claims["unique_name"])
}

func TestDecodeClaims_StandardAlphabet(t *testing.T) {
	// "?>" and "~~" encode to segments containing '/' and '+' in the standard alphabet.
	raw := `{"sub":"a?>b","name":"~~~"}`
	body := base64.RawStdEncoding.EncodeToString([]byte(raw))
	require.True(t, strings.ContainsAny(body, "+/"), "fixture should use the standard alphabet")

	claims, err := DecodeClaims("h." + body + ".s")
	require.NoError(t, err)
	assert.Equal(t, "a?>b", claims["sub"])
	assert.Equal(t, "~~~", claims["name"])
}

func TestDecodeClaims_TwoSegmentsAccepted(t *testing.T) {
	body := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u"}`))
	_, err := DecodeClaims("header." + body)
	require.NoError(t, err)
}

func TestDecodeClaims_Malformed(t *testing.T) {
	notObject := base64.RawURLEncoding.EncodeToString([]byte(`["a"]`))
	null := base64.RawURLEncoding.EncodeToString([]byte(`null`))
	badUTF8 := base64.RawURLEncoding.EncodeToString([]byte{'"', 0xff, 0xfe, '"'})

	cases := map[string]string{
		"empty":           "",
		"single segment":  "abc",
		"invalid base64":  "a.@@@.c",
		"not json":        "a." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".c",
		"json array":      "a." + notObject + ".c",
		"json null":       "a." + null + ".c",
		"invalid utf8":    "a." + badUTF8 + ".c",
		"whitespace only": "   ",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			claims, err := DecodeClaims(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedCredential), "got %v", err)
			assert.Nil(t, claims)
		})
	}
}

func TestClaims_String(t *testing.T) {
	c := Claims{
		"empty": "",
		"list":  []any{"", "first", "second"},
		"num":   42.0,
		"name":  "koi",
	}

	v, ok := c.String("missing", "empty", "num", "list")
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok = c.String("missing", "num")
	assert.False(t, ok)
}

func TestClaims_ExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	c := Claims{"exp": float64(exp.Unix())}
	assert.True(t, exp.Equal(c.ExpiresAt()))
	assert.True(t, Claims{}.ExpiresAt().IsZero())
	assert.True(t, Claims{"exp": "soon"}.ExpiresAt().IsZero())
}

func TestIdentityFromClaims(t *testing.T) {
	claims := Claims{
		"nameid":      "42",
		"email":       "staff@example.com",
		"unique_name": "staff1",
		"FullName":    "Farm Staff",
		"picture":     "https://cdn.example.com/a.png",
	}

	id := IdentityFromClaims(claims, RoleFarmStaff)
	assert.Equal(t, "42", id.ID)
	assert.Equal(t, "staff@example.com", id.Email)
	assert.Equal(t, "staff1", id.Username)
	assert.Equal(t, RoleFarmStaff, id.Role)
	require.NotNil(t, id.DisplayName)
	assert.Equal(t, "Farm Staff", *id.DisplayName)
	require.NotNil(t, id.Avatar)
}

func TestIdentityFromClaims_Fallbacks(t *testing.T) {
	id := IdentityFromClaims(Claims{"email": "only@example.com"}, Role("Customer"))
	assert.Equal(t, "only@example.com", id.ID)
	assert.Equal(t, "only@example.com", id.Username)
	assert.Equal(t, RoleCustomer, id.Role, "invalid role strings are normalised")
	assert.Nil(t, id.DisplayName)
	assert.Nil(t, id.Avatar)
}

func TestIdentityFromClaims_RoleOnly(t *testing.T) {
	id := IdentityFromClaims(Claims{"role": "Manager"}, RoleManager)
	assert.Equal(t, RoleManager, id.Role)
	assert.Empty(t, id.ID)
	assert.Empty(t, id.Email)
	assert.Empty(t, id.Username)
}

func TestIdentityFromClaims_UsernameAsID(t *testing.T) {
	id := IdentityFromClaims(Claims{"unique_name": "koi"}, RoleCustomer)
	assert.Equal(t, "koi", id.ID)
	assert.Equal(t, "koi", id.Username)
}
