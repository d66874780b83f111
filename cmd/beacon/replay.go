package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/beacon/pkg/beacon"
	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/storage"
	"github.com/randalmurphal/beacon/pkg/beacon/tick"
)

// replayOptions holds flags for the replay command.
type replayOptions struct {
	*rootOptions
	Database string
	Timeout  time.Duration
	Settings string
	Options  string
}

// replayFile is a recorded session: the destination settings and options
// Initialize receives, the page the calls were made on, and the queued
// calls in the order they were made.
type replayFile struct {
	Location beacon.Location `yaml:"location"`
	Settings map[string]any  `yaml:"settings"`
	Options  beacon.Options  `yaml:"options"`
	Calls    [][]any         `yaml:"calls"`
}

func newReplayCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &replayOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay a recorded call queue",
		Long: `Replay a recorded call queue through the pipeline.

The file (YAML or JSON, "-" for stdin) names the destination settings, the
options and the queued calls. Every destination in the settings prints the
envelopes it receives, one per line.

Example:
  beacon replay session.yaml
  beacon replay --db ./beacon.db --format text session.yaml
  beacon replay --settings prod.yaml --options opts.json session.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database persisting identity between replays")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", beacon.DefaultTimeout, "delay before call callbacks run")
	cmd.Flags().StringVar(&opts.Settings, "settings", "", "YAML or JSON destination settings laid over the file's")
	cmd.Flags().StringVar(&opts.Options, "options", "", "YAML or JSON options replacing the file's")
	return cmd
}

func readReplayFile(path string, stdin io.Reader) (replayFile, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return replayFile{}, fmt.Errorf("read %s: %w", path, err)
	}

	var f replayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return replayFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// applyOverrides lays the --settings file over f.Settings, one level deep
// per destination, and replaces f.Options with the --options file.
func applyOverrides(f *replayFile, opts *replayOptions) error {
	if opts.Settings != "" {
		cfg, err := config.FromFile(opts.Settings)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if f.Settings == nil {
			f.Settings = make(map[string]any)
		}
		for _, name := range cfg.Keys() {
			base, _ := f.Settings[name].(map[string]any)
			f.Settings[name] = config.Merge(base, cfg.Map(name))
		}
	}
	if opts.Options != "" {
		data, err := os.ReadFile(opts.Options)
		if err != nil {
			return fmt.Errorf("load options: %w", err)
		}
		if f.Options, err = beacon.LoadOptions(data); err != nil {
			return err
		}
	}
	return nil
}

func runReplay(ctx context.Context, opts *replayOptions, path string, stdin io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(errOut, opts.Verbose)

	f, err := readReplayFile(path, stdin)
	if err != nil {
		return err
	}
	if err := applyOverrides(&f, opts); err != nil {
		return err
	}

	loop := tick.NewLoop()
	defer loop.Close()

	pipelineOpts := []beacon.Option{
		beacon.WithLogger(logger),
		beacon.WithScheduler(loop),
		beacon.WithLocation(f.Location),
		beacon.WithTimeout(opts.Timeout),
	}
	if opts.Database != "" {
		db, err := storage.NewSQLiteStore(opts.Database, storage.DefaultSQLiteOptions)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		pipelineOpts = append(pipelineOpts, beacon.WithStorage(db))
	}

	a := beacon.New(pipelineOpts...)
	defer a.Close()

	names := make([]string, 0, len(f.Settings))
	for name := range f.Settings {
		names = append(names, name)
	}
	sort.Strings(names)

	var consoles []*console
	for _, name := range names {
		ctor := consoleConstructor(name, out, opts.Format, logger, func(c *console) {
			consoles = append(consoles, c)
		})
		if err := a.AddIntegration(name, ctor); err != nil {
			return err
		}
	}

	elapsed := observability.TimedOperation()
	replayErr := a.Start(ctx, f.Calls, f.Settings, f.Options)
	loop.Wait()

	total := 0
	for _, c := range consoles {
		total += c.Count()
	}
	logger.Info("replay finished",
		"calls", len(f.Calls),
		"destinations", len(consoles),
		"envelopes", total,
		"user_id", a.User().ID(),
		"anonymous_id", a.User().AnonymousID(),
		"duration_ms", elapsed(),
	)
	if replayErr != nil {
		return fmt.Errorf("replay: %w", replayErr)
	}
	return nil
}
