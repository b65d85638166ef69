package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"versalex-ingest/internal/adapter"
	"versalex-ingest/internal/follower"
	"versalex-ingest/internal/locator"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/render"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	lastLines = regexp.MustCompile(`^\d+$`)
	skipLines = regexp.MustCompile(`^\+\d+$`)
)

// window is what --lines asks for: print the last Last events before the
// first end of file, or skip Skip events (-1 mutes until that end of file).
type window struct {
	Last int
	Skip int
}

func parseLines(s string) (window, error) {
	switch {
	case s == "":
		return window{}, nil
	case lastLines.MatchString(s):
		n, err := strconv.Atoi(s)
		if err != nil {
			return window{}, fmt.Errorf("lines must be a number or +number: %s", s)
		}
		return window{Last: n, Skip: -1}, nil
	case skipLines.MatchString(s):
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return window{}, fmt.Errorf("lines must be a number or +number: %s", s)
		}
		return window{Skip: n}, nil
	}
	return window{}, fmt.Errorf("lines must be a number or +number: %s", s)
}

func resolveFile(v *viper.Viper, opts *options, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	service := opts.service
	if service == "" {
		service = v.GetString("service")
	}
	if path, ok := locator.DefaultLog(v.GetString("init-dir"), service); ok {
		return path, nil
	}
	if opts.service != "" {
		return "", fmt.Errorf("service %s not found", opts.service)
	}
	return "", fmt.Errorf("log filename must be specified")
}

func runTail(cmd *cobra.Command, v *viper.Viper, opts *options, args []string) error {
	file, err := resolveFile(v, opts, args)
	if err != nil {
		return err
	}
	win, err := parseLines(opts.lines)
	if err != nil {
		return err
	}

	var renderer render.Renderer
	switch strings.ToLower(opts.output) {
	case "json":
		host, _ := os.Hostname()
		renderer = render.NewJSONRenderer(cmd.OutOrStdout(), host, file)
	case "text", "":
		text := render.NewTextRenderer(cmd.OutOrStdout())
		text.Plain = opts.plain
		renderer = text
	default:
		return fmt.Errorf("unknown output format: %s", opts.output)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return tail(ctx, file, follower.Options{
		Follow:     opts.follow,
		BufferSize: v.GetInt("buffer-size"),
		Interval:   v.GetDuration("interval"),
	}, win, renderer)
}

func tail(ctx context.Context, file string, fo follower.Options, win window, r render.Renderer) error {
	f := follower.New(file, fo)
	emit := func(e model.Event) error {
		return r.Render(e)
	}
	// Last must see the first end of file before Skip unmutes.
	if win.Last > 0 {
		f.Subscribe(adapter.Last(win.Last, emit))
	}
	f.Subscribe(adapter.Skip(win.Skip, emit))

	if err := f.Run(ctx); err != nil {
		return err
	}
	stats := f.Stats()
	log.Debug().Int64("events", stats.Events).Int64("failures", stats.Failures).Int64("rotations", stats.Rotations).Msg("Stopped following")
	return nil
}
