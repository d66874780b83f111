package beacon_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/beacon/pkg/beacon"
)

func TestLoadOptions_YAML(t *testing.T) {
	opts, err := beacon.LoadOptions([]byte(`
initialPageview: true
plan:
  track:
    Archived:
      enabled: false
    Routed:
      integrations:
        Mixpanel: false
cookie:
  maxage: 720h
  domain: .example.com
  secure: true
localStorage:
  enabled: false
user:
  persist: false
  idKey: uid
group:
  traitsKey: org_traits
`))
	require.NoError(t, err)

	assert.True(t, opts.InitialPageview)
	require.NotNil(t, opts.Plan.Track["Archived"].Enabled)
	assert.False(t, *opts.Plan.Track["Archived"].Enabled)
	assert.Nil(t, opts.Plan.Track["Routed"].Enabled)
	assert.Equal(t, map[string]any{"Mixpanel": false}, opts.Plan.Track["Routed"].Integrations)
	assert.Equal(t, 720*time.Hour, opts.Cookie.MaxAge)
	assert.Equal(t, ".example.com", opts.Cookie.Domain)
	assert.True(t, opts.Cookie.Secure)
	require.NotNil(t, opts.LocalStorage.Enabled)
	assert.False(t, *opts.LocalStorage.Enabled)
	require.NotNil(t, opts.User.Persist)
	assert.False(t, *opts.User.Persist)
	assert.Equal(t, "uid", opts.User.IDKey)
	assert.Equal(t, "org_traits", opts.Group.TraitsKey)
}

func TestLoadOptions_JSON(t *testing.T) {
	opts, err := beacon.LoadOptions([]byte(`{"initialPageview": true, "user": {"idKey": "uid"}}`))
	require.NoError(t, err)
	assert.True(t, opts.InitialPageview)
	assert.Equal(t, "uid", opts.User.IDKey)
}

func TestLoadOptions_Invalid(t *testing.T) {
	_, err := beacon.LoadOptions([]byte("initialPageview: [unterminated"))
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	a := beacon.New()
	defer a.Close()

	assert.Equal(t, beacon.DefaultTimeout, a.Timeout())
	assert.Equal(t, "memory", a.User().Storage().Name())
	assert.Same(t, a.User().Storage(), a.Group().Storage())
	assert.False(t, a.IsReady())
	assert.Empty(t, a.Integrations())
}

func TestNew_DefaultLoopRunsCallbacks(t *testing.T) {
	a := beacon.New(beacon.WithTimeout(0))
	defer a.Close()

	done := make(chan struct{})
	a.Track(ctx, beacon.TrackCall{Event: "E", Callback: func() { close(done) }})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}
}
