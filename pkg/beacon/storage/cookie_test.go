package storage_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/beacon/pkg/beacon/storage"
)

// blockedJar simulates cookies being disabled.
type blockedJar struct{}

func (blockedJar) SetCookies(*url.URL, []*http.Cookie) {}
func (blockedJar) Cookies(*url.URL) []*http.Cookie     { return nil }

func newCookieStore(t *testing.T, pageURL string, opts storage.CookieOptions) *storage.CookieStore {
	t.Helper()
	c, err := storage.NewCookieStore(nil, pageURL, opts)
	require.NoError(t, err)
	return c
}

func TestCookieStore_RoundTrip(t *testing.T) {
	c := newCookieStore(t, "https://app.example.com/docs/page?x=1", storage.CookieOptions{})

	require.NoError(t, c.Set("ajs_user_id", "user-42"))
	v, err := c.Get("ajs_user_id")
	require.NoError(t, err)
	assert.Equal(t, "user-42", v)

	require.NoError(t, c.Set("ajs_user_traits", map[string]any{"plan": "pro", "seats": 3}))
	v, err = c.Get("ajs_user_traits")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"plan": "pro", "seats": 3.0}, v)

	require.NoError(t, c.Remove("ajs_user_id"))
	_, err = c.Get("ajs_user_id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCookieStore_NilRemoves(t *testing.T) {
	c := newCookieStore(t, "https://example.com/", storage.CookieOptions{})

	require.NoError(t, c.Set("ajs_anonymous_id", "anon"))
	require.NoError(t, c.Set("ajs_anonymous_id", nil))
	_, err := c.Get("ajs_anonymous_id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCookieStore_Defaults(t *testing.T) {
	c := newCookieStore(t, "https://app.example.co.uk/", storage.CookieOptions{})

	opts := c.Options()
	assert.Equal(t, storage.DefaultCookieMaxAge, opts.MaxAge)
	assert.Equal(t, "/", opts.Path)
	assert.Equal(t, ".example.co.uk", opts.Domain)
}

func TestCookieStore_SharedAcrossSubdomains(t *testing.T) {
	jar, err := storage.NewCookieJar()
	require.NoError(t, err)

	app, err := storage.NewCookieStore(jar, "https://app.example.com/", storage.CookieOptions{})
	require.NoError(t, err)
	www, err := storage.NewCookieStore(jar, "https://www.example.com/", storage.CookieOptions{})
	require.NoError(t, err)

	require.NoError(t, app.Set("ajs_anonymous_id", "anon-1"))
	v, err := www.Get("ajs_anonymous_id")
	require.NoError(t, err)
	assert.Equal(t, "anon-1", v)
}

func TestCookieStore_HostOnlyDomains(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"localhost", "http://localhost:3000/"},
		{"ip address", "http://127.0.0.1/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCookieStore(t, tt.url, storage.CookieOptions{})
			assert.Empty(t, c.Options().Domain)
			assert.True(t, c.Probe())
		})
	}
}

func TestCookieStore_DomainFallback(t *testing.T) {
	// A domain the page cannot write to is dropped after the test cookie fails.
	c := newCookieStore(t, "https://app.example.com/", storage.CookieOptions{Domain: ".other.org"})
	assert.Empty(t, c.Options().Domain)

	require.NoError(t, c.Set("k", "v"))
	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestCookieStore_Probe(t *testing.T) {
	c := newCookieStore(t, "https://example.com/", storage.CookieOptions{MaxAge: time.Hour})
	assert.True(t, c.Probe())
	_, err := c.Get("ajs:cookies")
	assert.ErrorIs(t, err, storage.ErrNotFound, "probe cookie must be cleaned up")

	blocked, err := storage.NewCookieStore(blockedJar{}, "https://example.com/", storage.CookieOptions{})
	require.NoError(t, err)
	assert.False(t, blocked.Probe())
}

func TestCookieStore_RawValue(t *testing.T) {
	jar, err := storage.NewCookieJar()
	require.NoError(t, err)
	page, _ := url.Parse("https://example.com/")
	jar.SetCookies(page, []*http.Cookie{{Name: "_sio", Value: "legacy----123", Path: "/"}})

	c, err := storage.NewCookieStore(jar, "https://example.com/", storage.CookieOptions{})
	require.NoError(t, err)

	v, err := c.Get("_sio")
	require.NoError(t, err)
	assert.Equal(t, "legacy----123", v)
}

func TestNewCookieStore_InvalidURL(t *testing.T) {
	_, err := storage.NewCookieStore(nil, "not a url", storage.CookieOptions{})
	assert.Error(t, err)
}

func TestTopDomain(t *testing.T) {
	assert.Equal(t, ".example.com", storage.TopDomain("a.b.example.com"))
	assert.Equal(t, "", storage.TopDomain("localhost"))
	assert.Equal(t, "", storage.TopDomain("com"))
}
