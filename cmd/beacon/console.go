package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/integration"
)

// printed is one line of console output.
type printed struct {
	Destination string         `json:"destination"`
	Type        facade.Type    `json:"type"`
	Message     map[string]any `json:"message"`
}

// console is a destination that writes every envelope it receives.
type console struct {
	*integration.Base

	mu     sync.Mutex
	out    io.Writer
	format string
	count  int
}

// consoleConstructor builds console destinations named name that share
// out. Destination settings:
//   - silent: count envelopes without printing
//   - fields: top-level envelope keys to print; all when absent
//   - sampleRate: fraction of envelopes printed, spread evenly (default 1)
func consoleConstructor(name string, out io.Writer, format string, logger *slog.Logger, sink func(*console)) integration.Constructor {
	return func(settings config.Config) integration.Integration {
		c := &console{
			Base:   integration.NewBase(name, settings),
			out:    out,
			format: format,
		}
		if logger != nil {
			logger.Debug("console destination created",
				slog.String("destination", name),
				slog.Any("settings", settings.Raw()))
		}
		if sink != nil {
			sink(c)
		}
		return c
	}
}

func (c *console) Identify(_ context.Context, f *facade.Identify) { c.write(f) }
func (c *console) Track(_ context.Context, f *facade.Track)       { c.write(f) }
func (c *console) Page(_ context.Context, f *facade.Page)         { c.write(f) }

// Count returns how many envelopes the destination received.
func (c *console) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *console) write(f facade.Facade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	settings := c.Settings()
	if settings.Bool("silent", false) || !c.sampled(settings.Float("sampleRate", 1)) {
		return
	}

	msg := f.JSON()
	if settings.Has("fields") {
		keep := settings.StringSlice("fields", nil)
		selected := make(map[string]any, len(keep))
		for _, k := range keep {
			if v, ok := msg[k]; ok {
				selected[k] = v
			}
		}
		msg = selected
	}

	line := printed{Destination: c.Name(), Type: f.Type(), Message: msg}
	if c.format == "text" {
		fmt.Fprintln(c.out, summarize(line))
		return
	}
	data, err := json.Marshal(line)
	if err != nil {
		fmt.Fprintf(c.out, "{\"destination\":%q,\"error\":%q}\n", c.Name(), err.Error())
		return
	}
	fmt.Fprintln(c.out, string(data))
}

// sampled reports whether the envelope just counted falls on a sample
// boundary for rate. Rates outside (0, 1) print everything or nothing.
func (c *console) sampled(rate float64) bool {
	switch {
	case rate >= 1:
		return true
	case rate <= 0:
		return false
	}
	return int(float64(c.count)*rate) > int(float64(c.count-1)*rate)
}

// summarize renders a line as "dest type key=value ..." with the
// top-level envelope keys that identify the call.
func summarize(p printed) string {
	s := fmt.Sprintf("%s %s", p.Destination, p.Type)
	keys := make([]string, 0, len(p.Message))
	for k := range p.Message {
		switch k {
		case "event", "name", "category", "userId", "anonymousId":
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		s += fmt.Sprintf(" %s=%v", k, p.Message[k])
	}
	return s
}
