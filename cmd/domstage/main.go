// Command domstage is the page presentation daemon.
//
// Usage:
//
//	domstage -config domstage.yaml        # perform the configured page
//	domstage -url https://example.com     # quick stage with defaults
//	domstage -outline https://example.com # inspect a page and exit
//	domstage -rehearse                    # perform on a memory document, no Chrome
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domstage"
	"github.com/hazyhaar/domstage/internal/dom"
	"github.com/hazyhaar/domstage/internal/outline"
	"github.com/hazyhaar/domstage/internal/safeurl"
	"github.com/hazyhaar/domstage/script"
)

type options struct {
	configPath string
	singleURL  string
	outlineURL string
	rehearse   bool
	mcpStdio   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to domstage.yaml config file")
	flag.StringVar(&opts.singleURL, "url", "", "stage a single URL with default settings")
	flag.StringVar(&opts.outlineURL, "outline", "", "outline a page and exit")
	flag.BoolVar(&opts.rehearse, "rehearse", false, "perform on an in-memory document, no Chrome")
	flag.BoolVar(&opts.mcpStdio, "mcp", false, "serve MCP tools on stdio alongside the stage")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("domstage: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	if opts.outlineURL != "" {
		return runOutline(ctx, opts.outlineURL)
	}

	if opts.rehearse {
		return runRehearse(ctx, logger, opts)
	}

	if opts.singleURL != "" {
		return runSingle(ctx, logger, opts)
	}

	if opts.configPath != "" {
		return runConfig(ctx, logger, opts)
	}

	fmt.Fprintln(os.Stderr, "usage: domstage -config <file> | -url <url> | -outline <url> | -rehearse")
	os.Exit(1)
	return nil
}

// runOutline fetches a page, reports its structure and exits. Private
// addresses are allowed; the page being vetted is usually a dev server.
func runOutline(ctx context.Context, url string) error {
	fetch := outline.NewFetcher(outline.FetchConfig{
		Validate: func(raw string) error {
			return safeurl.Validate(raw, safeurl.Policy{AllowPrivate: true})
		},
	})

	o, err := fetch.Outline(ctx, url)
	if err != nil {
		return fmt.Errorf("outline: %w", err)
	}

	data, _ := json.MarshalIndent(o, "", "  ")
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func runRehearse(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, extra, err := loadConfig(opts)
	if err != nil {
		return err
	}

	doc := dom.NewMemory("Rehearsal", []script.Section{
		{ID: "about", Top: 600},
		{ID: "services", Top: 1400},
		{ID: "portfolio", Top: 2200},
		{ID: "contact", Top: 3000},
	})

	p, err := domstage.NewRehearsal(cfg, doc, logger, extra...)
	if err != nil {
		return err
	}

	// Scripted tour so the scroll machinery performs too, not just the
	// typewriter.
	go tour(ctx, doc)

	return serve(ctx, logger, p, opts)
}

func runSingle(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, extra, err := loadConfig(opts)
	if err != nil {
		return err
	}
	cfg.Session.URL = opts.singleURL

	p, err := domstage.New(cfg, logger, extra...)
	if err != nil {
		return err
	}
	return serve(ctx, logger, p, opts)
}

func runConfig(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, extra, err := loadConfig(opts)
	if err != nil {
		return err
	}

	p, err := domstage.New(cfg, logger, extra...)
	if err != nil {
		return err
	}
	return serve(ctx, logger, p, opts)
}

// loadConfig reads the config file (or starts from defaults) and, in
// MCP mode, moves stdout event sinks to stderr: the MCP framing owns
// stdout then.
func loadConfig(opts options) (*domstage.Config, []domstage.Sink, error) {
	var cfg *domstage.Config
	if opts.configPath != "" {
		loaded, err := domstage.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = &domstage.Config{}
		cfg.ApplyDefaults()
	}

	var extra []domstage.Sink
	if opts.mcpStdio {
		kept := cfg.Sinks[:0]
		for _, sc := range cfg.Sinks {
			if sc.Type == "stdout" {
				extra = append(extra, domstage.NewStdoutSink(os.Stderr))
				continue
			}
			kept = append(kept, sc)
		}
		cfg.Sinks = kept
	}
	return cfg, extra, nil
}

// serve starts the presenter and blocks until ctx is cancelled, running
// the admin API and optionally the MCP stdio server beside it.
func serve(ctx context.Context, logger *slog.Logger, p *domstage.Presenter, opts options) error {
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer p.Stop()

	errc := make(chan error, 2)
	go func() { errc <- p.ServeAPI(ctx) }()

	if opts.mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "domstage",
			Version: "1.0.0",
		}, nil)
		p.RegisterMCP(srv)
		go func() { errc <- srv.Run(ctx, &mcp.StdioTransport{}) }()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
}

// tour walks the rehearsal viewport through the sections and back up,
// over and over, so the event stream shows the full performance.
func tour(ctx context.Context, doc *dom.Memory) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	offset := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			offset += 400
			if offset > 3200 {
				doc.EmitScrollTop()
				offset = 0
				continue
			}
			doc.EmitScroll(offset)
		}
	}
}
