/*
Package beacon is a client-side analytics pipeline.

# Overview

Application code issues identify, track and page calls. The pipeline
normalizes each call into an envelope, enriches it with a durable visitor
and group identity, works out which destinations the envelope is enabled
for, and hands it to every enabled destination in the order they were
registered. Once every destination reports ready, ready listeners fire.

# Basic Usage

Register destination constructors, then initialize with per-destination
settings:

	a := beacon.New(beacon.WithLocation(beacon.Location{
	    Href:  "https://shop.example.com/pricing?ref=ad",
	    Title: "Pricing",
	}))
	defer a.Close()

	a.MustAddIntegration("Console", newConsole)
	a.Initialize(ctx, map[string]any{
	    "Console": map[string]any{"level": "debug"},
	}, beacon.Options{InitialPageview: true})

	a.Identify(ctx, beacon.IdentifyCall{UserID: "u-42", Traits: map[string]any{"plan": "pro"}})
	a.Track(ctx, beacon.TrackCall{Event: "Clicked", Properties: map[string]any{"price": 9.99}})

# Destinations

A destination implements integration.Integration, usually by embedding
*integration.Base and overriding the handlers it needs. Initialize gets a
ready callback that must be called once the destination can accept
calls; calls may arrive earlier and Base.Enqueue holds them.

Per-call overrides travel in the options map. A key naming a destination
(case-insensitively) or the wildcard "all" lands in the envelope's
integrations map; an explicit false disables that destination, an object
is passed to it as its options:

	a.Track(ctx, beacon.TrackCall{
	    Event:   "Clicked",
	    Options: map[string]any{"Mixpanel": false, "Console": map[string]any{"color": true}},
	})

# Snippet Calls

Code that queues positional calls before the pipeline exists can replay
them with Start, or run them one at a time with Push. The argument
shapes follow the historical snippet rules, see ResolveIdentify,
ResolveTrack and ResolvePage:

	a.Push(ctx, "page", "Docs", "Pricing")
	a.Push(ctx, "identify", map[string]any{"email": "ada@example.com"}, func() {})

# Storage

Identity is kept in the first storage candidate whose probe passes,
resolved once in New. Without candidates, or when all fail, identity lives
in memory for the life of the process.

# Completion Callbacks

Every call accepts a callback that runs on the scheduler after the
configured timeout (300ms by default), or on the next tick when the
timeout is zero. Callbacks never run on the caller's stack.
*/
package beacon
