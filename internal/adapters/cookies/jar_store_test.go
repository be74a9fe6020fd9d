package cookies

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleCookie(value string) *http.Cookie {
	return &http.Cookie{Name: "user-role", Value: value, Path: "/", MaxAge: 86400}
}

func TestJarStore_SetGetDelete(t *testing.T) {
	s, err := NewJarStore(JarOptions{})
	require.NoError(t, err)

	_, ok := s.Get("user-role")
	assert.False(t, ok)

	require.NoError(t, s.Set(roleCookie("manager")))
	v, ok := s.Get("user-role")
	require.True(t, ok)
	assert.Equal(t, "manager", v)

	require.NoError(t, s.Set(roleCookie("customer")))
	v, _ = s.Get("user-role")
	assert.Equal(t, "customer", v, "set replaces the previous value")

	require.NoError(t, s.Delete("user-role"))
	_, ok = s.Get("user-role")
	assert.False(t, ok)

	// Deleting an absent cookie is fine.
	require.NoError(t, s.Delete("user-role"))
}

func TestJarStore_ExpiredCookieDeletes(t *testing.T) {
	s, err := NewJarStore(JarOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Set(roleCookie("manager")))
	require.NoError(t, s.Set(&http.Cookie{Name: "user-role", Path: "/", Expires: time.Unix(0, 0)}))

	_, ok := s.Get("user-role")
	assert.False(t, ok)
}

func TestJarStore_RejectsNamelessCookie(t *testing.T) {
	s, err := NewJarStore(JarOptions{})
	require.NoError(t, err)
	assert.Error(t, s.Set(&http.Cookie{Value: "x"}))
	assert.Error(t, s.Set(nil))
}

func TestJarStore_RequiresAbsoluteURL(t *testing.T) {
	_, err := NewJarStore(JarOptions{URL: "/relative"})
	assert.Error(t, err)
}

func TestJarStore_Names(t *testing.T) {
	s, err := NewJarStore(JarOptions{URL: "https://shop.example.com/"})
	require.NoError(t, err)

	require.NoError(t, s.Set(&http.Cookie{Name: "refresh-token", Value: "r", Path: "/", MaxAge: 60}))
	require.NoError(t, s.Set(&http.Cookie{Name: "access-token", Value: "a", Path: "/", MaxAge: 60}))
	assert.Equal(t, []string{"access-token", "refresh-token"}, s.Names())
	assert.Equal(t, "shop.example.com", s.URL().Host)
}

func TestJarStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")

	first, err := NewJarStore(JarOptions{FilePath: path})
	require.NoError(t, err)
	require.NoError(t, first.Set(roleCookie("sale_staff")))
	require.NoError(t, first.Set(&http.Cookie{Name: "access-token", Value: "tok", Path: "/", MaxAge: 86400}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := NewJarStore(JarOptions{FilePath: path})
	require.NoError(t, err)
	v, ok := second.Get("user-role")
	require.True(t, ok)
	assert.Equal(t, "sale_staff", v)

	require.NoError(t, second.Delete("access-token"))

	third, err := NewJarStore(JarOptions{FilePath: path})
	require.NoError(t, err)
	_, ok = third.Get("access-token")
	assert.False(t, ok)
	_, ok = third.Get("user-role")
	assert.True(t, ok)
}

func TestJarStore_SkipsExpiredOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	stored := []storedCookie{
		{Name: "user-role", Value: "manager", Path: "/", Expires: time.Now().Add(-time.Hour)},
		{Name: "refresh-token", Value: "r", Path: "/", Expires: time.Now().Add(time.Hour)},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	s, err := NewJarStore(JarOptions{FilePath: path})
	require.NoError(t, err)

	_, ok := s.Get("user-role")
	assert.False(t, ok)
	v, ok := s.Get("refresh-token")
	require.True(t, ok)
	assert.Equal(t, "r", v)
}

func TestJarStore_CorruptFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewJarStore(JarOptions{FilePath: path})
	require.NoError(t, err)
	assert.Empty(t, s.Names())
}
