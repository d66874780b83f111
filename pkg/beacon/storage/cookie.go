package storage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultCookieMaxAge is how long identity cookies live.
const DefaultCookieMaxAge = 365 * 24 * time.Hour

const (
	cookieProbeKey  = "ajs:cookies"
	cookieDomainKey = "ajs:test"
)

// CookieOptions configures the cookies written by CookieStore.
type CookieOptions struct {
	// MaxAge is the cookie lifetime. Default: one year.
	MaxAge time.Duration `yaml:"maxage" json:"maxage"`

	// Path is the cookie path. Default: "/".
	Path string `yaml:"path" json:"path"`

	// Domain is the cookie domain. Default: "." + the registrable domain
	// of the page host, or host-only when there is none (localhost, IPs,
	// hosts on the public suffix list).
	Domain string `yaml:"domain" json:"domain"`

	// Secure marks cookies as HTTPS-only.
	Secure bool `yaml:"secure" json:"secure"`
}

// CookieStore keeps values in cookies of an http.CookieJar, as seen from
// a single page URL. Values are JSON-encoded and query-escaped.
type CookieStore struct {
	mu   sync.Mutex
	jar  http.CookieJar
	page *url.URL
	opts CookieOptions
}

var (
	_ Backend = (*CookieStore)(nil)
	_ Prober  = (*CookieStore)(nil)
)

// NewCookieJar returns a cookie jar that honours the public suffix list.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// NewCookieStore creates a cookie backend for pageURL.
// If jar is nil a fresh public-suffix-aware jar is used.
func NewCookieStore(jar http.CookieJar, pageURL string, opts CookieOptions) (*CookieStore, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if page.Host == "" {
		return nil, fmt.Errorf("page url %q has no host", pageURL)
	}
	if jar == nil {
		if jar, err = NewCookieJar(); err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}

	c := &CookieStore{jar: jar, page: page}
	c.SetOptions(opts)
	return c, nil
}

// TopDomain returns "." + the registrable domain (eTLD+1) of host, or ""
// when host has none.
func TopDomain(host string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || domain == "" {
		return ""
	}
	return "." + domain
}

// SetOptions applies cookie options, filling defaults. If a test cookie
// cannot be read back with the chosen domain, the domain is dropped and
// cookies become host-only.
func (c *CookieStore) SetOptions(opts CookieOptions) {
	if opts.MaxAge == 0 {
		opts.MaxAge = DefaultCookieMaxAge
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.Domain == "" {
		opts.Domain = TopDomain(c.page.Hostname())
	}

	c.mu.Lock()
	c.opts = opts
	c.mu.Unlock()

	if opts.Domain == "" {
		return
	}
	_ = c.Set(cookieDomainKey, true)
	if v, err := c.Get(cookieDomainKey); err != nil || v != true {
		c.mu.Lock()
		c.opts.Domain = ""
		c.mu.Unlock()
	}
	_ = c.Remove(cookieDomainKey)
}

// Options returns the effective cookie options.
func (c *CookieStore) Options() CookieOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// Name implements Backend.
func (c *CookieStore) Name() string { return "cookie" }

// Get implements Backend.
func (c *CookieStore) Get(key string) (any, error) {
	name := url.QueryEscape(key)
	for _, ck := range c.jar.Cookies(c.page) {
		if ck.Name != name {
			continue
		}
		raw, err := url.QueryUnescape(ck.Value)
		if err != nil {
			return nil, fmt.Errorf("decode cookie %s: %w", key, err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return raw, nil
		}
		return v, nil
	}
	return nil, ErrNotFound
}

// Set implements Backend. A nil value removes the cookie.
func (c *CookieStore) Set(key string, value any) error {
	if value == nil {
		return c.Remove(key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cookie %s: %w", key, err)
	}
	c.write(key, url.QueryEscape(string(data)), int(c.Options().MaxAge/time.Second))
	return nil
}

// Remove implements Backend.
func (c *CookieStore) Remove(key string) error {
	c.write(key, "", -1)
	return nil
}

// Probe implements Prober with a write/read/delete round trip.
func (c *CookieStore) Probe() bool {
	_ = c.Set(cookieProbeKey, true)
	v, err := c.Get(cookieProbeKey)
	if err != nil || v != true {
		return false
	}
	_ = c.Remove(cookieProbeKey)
	return true
}

func (c *CookieStore) write(key, value string, maxAge int) {
	opts := c.Options()
	c.jar.SetCookies(c.page, []*http.Cookie{{
		Name:   url.QueryEscape(key),
		Value:  value,
		Path:   opts.Path,
		Domain: opts.Domain,
		MaxAge: maxAge,
		Secure: opts.Secure,
	}})
}
