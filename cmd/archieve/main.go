package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/publiclogic/archieve/internal"
	"github.com/publiclogic/archieve/internal/apperr"
	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/mcpserver"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// build wires the core for one-shot commands. Logs go to stderr so stdout
// stays machine readable.
func build(cmd *cli.Command) (*internal.Components, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg.App.LogLevel, os.Stderr)
	slog.SetDefault(logger)
	comps, err := internal.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	comps.ConnectOnce()
	return comps, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

type cliSession struct {
	fallback capture.Session
	url      string
}

func (s cliSession) Actor() string { return s.fallback.Actor() }

func (s cliSession) SourceURL() string {
	if s.url != "" {
		return s.url
	}
	return s.fallback.SourceURL()
}

func captureCmd(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if text == "" || text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	comps, err := build(cmd)
	if err != nil {
		return err
	}
	defer comps.Close()

	sess := cliSession{fallback: comps.Session, url: cmd.String("url")}
	outcome, item, err := comps.Capture.Capture(ctx, text, sess)
	if err != nil {
		return err
	}
	if outcome == capture.OutcomeIgnored {
		fmt.Fprintln(os.Stderr, "nothing to capture")
		return nil
	}
	fmt.Printf("%s: %s (%s)\n", outcome.Message(), item.Title, item.ID)
	return nil
}

func queueCmd(ctx context.Context, cmd *cli.Command) error {
	comps, err := build(cmd)
	if err != nil {
		return err
	}
	defer comps.Close()

	items := comps.Queue.Load(ctx)
	return printJSON(os.Stdout, map[string]any{
		"count":   len(items),
		"version": comps.Queue.Version(ctx),
		"items":   items,
	})
}

func syncCmd(ctx context.Context, cmd *cli.Command) error {
	comps, err := build(cmd)
	if err != nil {
		return err
	}
	defer comps.Close()

	if !comps.Conn.Available() {
		return apperr.ErrUnavailable
	}
	res, err := comps.Syncer.SyncQueue(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrSyncFailed) {
			return fmt.Errorf("%d remaining: %w", res.Remaining, err)
		}
		return err
	}
	if res.Synced == 0 {
		fmt.Println("queue is empty")
		return nil
	}
	fmt.Printf("Synced %d offline items\n", res.Synced)
	return nil
}

func statusCmd(ctx context.Context, cmd *cli.Command) error {
	comps, err := build(cmd)
	if err != nil {
		return err
	}
	defer comps.Close()

	state := comps.Tracker.State()
	return printJSON(os.Stdout, map[string]any{
		"state":            state,
		"label":            state.Label(),
		"sync_allowed":     state.SyncAllowed(),
		"remote_available": comps.Conn.Available(),
		"queue_count":      comps.Queue.Len(ctx),
	})
}

func mcpCmd(ctx context.Context, cmd *cli.Command) error {
	comps, err := build(cmd)
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, loop := range comps.Background() {
		go func() {
			if err := loop(ctx); err != nil {
				comps.Logger.Error("background loop stopped", slog.String("error", err.Error()))
			}
		}()
	}

	srv := mcpserver.New(mcpserver.Deps{
		Capture: comps.Capture,
		Queue:   comps.Queue,
		Syncer:  comps.Syncer,
		Conn:    comps.Conn,
		Cache:   comps.Cache,
		Tracker: comps.Tracker,
		Session: comps.Session,
	})
	return srv.ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "archieve",
		Usage:  "Offline-first capture inbox that syncs notes into the PublicLogic record store",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and background sync",
				Action: serve,
			},
			{
				Name:      "capture",
				Usage:     "Capture a note (reads stdin when no text is given)",
				ArgsUsage: "[text]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Page the note refers to"},
				},
				Action: captureCmd,
			},
			{
				Name:   "queue",
				Usage:  "Print captures waiting to be synced",
				Action: queueCmd,
			},
			{
				Name:   "sync",
				Usage:  "Send queued captures to the record store now",
				Action: syncCmd,
			},
			{
				Name:   "status",
				Usage:  "Print the connection state",
				Action: statusCmd,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcpCmd,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
