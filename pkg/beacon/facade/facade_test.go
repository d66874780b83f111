package facade_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/normalize"
)

var fixed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func TestEnabled(t *testing.T) {
	f := facade.NewTrack(map[string]any{
		"integrations": map[string]any{
			"Off":    false,
			"On":     true,
			"Object": map[string]any{"key": "v"},
			"String": "yes",
		},
	})

	tests := []struct {
		dest string
		want bool
	}{
		{"Missing", true},
		{"Off", false},
		{"On", true},
		{"Object", true},
		{"String", true},
	}
	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Enabled(tt.dest))
		})
	}
}

func TestEnabled_FallsBackToOptions(t *testing.T) {
	f := facade.NewTrack(map[string]any{
		"options": map[string]any{"Mixpanel": false},
	})
	assert.False(t, f.Enabled("Mixpanel"))
	assert.Equal(t, map[string]any{"Mixpanel": false}, f.Integrations())
}

// The wildcard key is carried through but only an explicit per-name
// boolean disables a destination.
func TestEnabled_WildcardDoesNotDisable(t *testing.T) {
	msg := normalize.Normalize(map[string]any{
		"event":      "Clicked",
		"properties": map[string]any{"price": 9.99},
		"options":    map[string]any{"All": false, "Mixpanel": true},
	}, []string{"Mixpanel", "OtherDest"})

	f := facade.NewTrack(msg)

	assert.Equal(t, map[string]any{"All": false, "Mixpanel": true}, f.Integrations())
	assert.True(t, f.Enabled("Mixpanel"))
	assert.True(t, f.Enabled("OtherDest"))
	assert.False(t, f.Enabled("All"))
}

func TestOptions(t *testing.T) {
	f := facade.NewTrack(map[string]any{
		"integrations": map[string]any{
			"Off":      false,
			"Mixpanel": map[string]any{"people": true},
			"Flag":     true,
		},
		"context": map[string]any{
			"Flag": map[string]any{"from": "context"},
		},
	})

	opts, ok := f.Options("Off")
	assert.False(t, ok)
	assert.Nil(t, opts)

	opts, ok = f.Options("Mixpanel")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"people": true}, opts)

	opts, ok = f.Options("Flag")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"from": "context"}, opts)

	opts, ok = f.Options("Missing")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{}, opts)
}

func TestNew_Clones(t *testing.T) {
	props := map[string]any{"price": 9.99}
	obj := map[string]any{"properties": props}

	f := facade.NewTrack(obj)
	props["price"] = 1.0
	assert.Equal(t, 9.99, f.Properties()["price"])

	got := f.Properties()
	got["price"] = 2.0
	assert.Equal(t, 9.99, f.Properties()["price"])
	assert.NotContains(t, obj, "timestamp", "input is not stamped")
}

func TestNew_WithoutClone(t *testing.T) {
	props := map[string]any{"price": 9.99}
	f := facade.NewTrack(map[string]any{"properties": props}, facade.WithoutClone())

	props["price"] = 1.0
	assert.Equal(t, 1.0, f.Properties()["price"])
}

func TestTimestamp(t *testing.T) {
	f := facade.NewTrack(map[string]any{}, facade.WithClock(clock))
	assert.Equal(t, fixed, f.Timestamp())

	set := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	f = facade.NewTrack(map[string]any{"timestamp": set}, facade.WithClock(clock))
	assert.Equal(t, set, f.Timestamp(), "an existing timestamp is kept")

	f = facade.NewTrack(map[string]any{"timestamp": "2021-06-01T10:00:00Z"})
	assert.Equal(t, time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC), f.Timestamp())

	f = facade.NewTrack(map[string]any{"timestamp": "yesterday"})
	assert.True(t, f.Timestamp().IsZero())
}

func TestJSON(t *testing.T) {
	f := facade.NewIdentify(map[string]any{
		"userId": "u-1",
		"traits": map[string]any{"email": "ada@example.com"},
	}, facade.WithClock(clock))

	got := f.JSON()
	assert.Equal(t, "identify", got["type"])
	assert.Equal(t, "u-1", got["userId"])
	assert.Equal(t, fixed, got["timestamp"])

	got["userId"] = "changed"
	assert.Equal(t, "u-1", f.UserID())
}

func TestIdentify(t *testing.T) {
	f := facade.NewIdentify(map[string]any{
		"userId":      "ada@example.com",
		"anonymousId": "anon-1",
		"traits":      map[string]any{"firstName": "Ada", "lastName": "Lovelace"},
	})

	assert.Equal(t, facade.TypeIdentify, f.Type())
	assert.Equal(t, "ada@example.com", f.UserID())
	assert.Equal(t, "anon-1", f.AnonymousID())
	assert.Equal(t, "ada@example.com", f.Email())
	assert.Equal(t, "Ada Lovelace", f.Name())

	f = facade.NewIdentify(map[string]any{
		"userId": "u-1",
		"traits": map[string]any{"name": "Grace", "email": "grace@example.com"},
	})
	assert.Equal(t, "grace@example.com", f.Email())
	assert.Equal(t, "Grace", f.Name())
}

func TestTrack(t *testing.T) {
	f := facade.NewTrack(map[string]any{
		"event": "Completed Order",
		"properties": map[string]any{
			"revenue":  42.5,
			"value":    3,
			"category": "Checkout",
			"label":    "Fast",
		},
	})

	assert.Equal(t, facade.TypeTrack, f.Type())
	assert.Equal(t, "Completed Order", f.Event())
	revenue, ok := f.Revenue()
	assert.True(t, ok)
	assert.Equal(t, 42.5, revenue)
	value, ok := f.Value()
	assert.True(t, ok)
	assert.Equal(t, 3.0, value)
	assert.Equal(t, "Checkout", f.Category())
	assert.Equal(t, "Fast", f.Name())

	_, ok = facade.NewTrack(map[string]any{"properties": map[string]any{"revenue": "lots"}}).Revenue()
	assert.False(t, ok)
}

func TestPage(t *testing.T) {
	tests := []struct {
		name     string
		obj      map[string]any
		fullName string
	}{
		{"category and name", map[string]any{"category": "Docs", "name": "Pricing"}, "Docs Pricing"},
		{"name only", map[string]any{"name": "Pricing"}, "Pricing"},
		{"category only", map[string]any{"category": "Docs"}, ""},
		{"neither", map[string]any{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fullName, facade.NewPage(tt.obj).FullName())
		})
	}
}

func TestPage_Track(t *testing.T) {
	p := facade.NewPage(map[string]any{
		"category":     "Docs",
		"name":         "Pricing",
		"properties":   map[string]any{"path": "/pricing"},
		"integrations": map[string]any{"Mixpanel": false},
	}, facade.WithClock(clock))

	track := p.Track(p.FullName())
	require.NotNil(t, track)
	assert.Equal(t, facade.TypeTrack, track.Type())
	assert.Equal(t, "Viewed Docs Pricing Page", track.Event())
	assert.Equal(t, map[string]any{"path": "/pricing"}, track.Properties())
	assert.Equal(t, fixed, track.Timestamp())
	assert.False(t, track.Enabled("Mixpanel"))
	assert.Equal(t, "track", track.JSON()["type"])

	assert.Equal(t, "Loaded a Page", p.Track("").Event())
}

func TestFacadeTypeSwitch(t *testing.T) {
	all := []facade.Facade{
		facade.NewIdentify(nil),
		facade.NewTrack(nil),
		facade.NewPage(nil),
	}

	var kinds []string
	for _, f := range all {
		switch f.(type) {
		case *facade.Identify:
			kinds = append(kinds, "identify")
		case *facade.Track:
			kinds = append(kinds, "track")
		case *facade.Page:
			kinds = append(kinds, "page")
		}
	}
	assert.Equal(t, []string{"identify", "track", "page"}, kinds)
}
