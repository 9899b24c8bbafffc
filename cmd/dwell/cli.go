package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/dwell/internal/app"
	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/ops"
	"github.com/hpungsan/dwell/internal/web"
)

// stdout is where command output goes. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
// Only serve runs the tracking engine; the other commands read and edit the store.
func newCLIApp(svc *app.Services) *cli.App {
	cliApp := &cli.App{
		Name:    "dwell",
		Usage:   "Local browsing time tracker",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(svc),
			statusCmd(svc),
			todayCmd(svc),
			yesterdayCmd(svc),
			allCmd(svc),
			summaryCmd(svc),
			reportCmd(svc),
			clearCmd(svc),
			screenshotsCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// serveCmd creates the serve command.
func serveCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the tracker with the extension ingress and dashboard (no MCP)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := svc.Config.HTTPBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := svc.Config.HTTPPort
			if c.IsSet("port") {
				port = c.Int("port")
			}

			if err := svc.Start(c.Context); err != nil {
				return outputError(err)
			}
			srv, err := web.NewServer(svc, Version, bind, port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv, svc.Log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// statusOutput is the persisted session state.
type statusOutput struct {
	IsTracking        bool   `json:"isTracking"`
	SessionStartTime  *int64 `json:"sessionStartTime"`
	SessionActiveTime int64  `json:"sessionActiveTime"`
}

// statusCmd creates the status command.
func statusCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether a session is open (as last persisted)",
		Action: func(c *cli.Context) error {
			state, err := db.LoadSessionState(c.Context, svc.Store)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			out := statusOutput{IsTracking: state.IsTracking, SessionActiveTime: state.SessionActiveTime}
			if state.SessionStartTime != 0 {
				start := state.SessionStartTime
				out.SessionStartTime = &start
			}
			return outputJSON(out)
		},
	}
}

// todayCmd creates the today command.
func todayCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Per-domain time for today",
		Action: func(c *cli.Context) error {
			output, err := ops.Today(c.Context, svc.Store, svc.Clock.Now())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// yesterdayCmd creates the yesterday command.
func yesterdayCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "yesterday",
		Usage: "Per-domain time for yesterday",
		Action: func(c *cli.Context) error {
			output, err := ops.Yesterday(c.Context, svc.Store, svc.Clock.Now())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// allCmd creates the all command.
func allCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "all",
		Usage: "Every domain record with daily breakdowns",
		Action: func(c *cli.Context) error {
			output, err := ops.AllTime(c.Context, svc.Store)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// summaryCmd creates the summary command.
func summaryCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show the last session summary",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clear", Usage: "Dismiss the summary instead of showing it"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("clear") {
				if err := ops.ClearLastSessionSummary(c.Context, svc.Store); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]bool{"cleared": true})
			}
			output, err := ops.LastSessionSummary(c.Context, svc.Store)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print the markdown activity report for a day",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Day as YYYY-MM-DD (default: today)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultReportLimit, Usage: "Top sites to list"},
			&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of markdown"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Report(c.Context, svc.Store, ops.ReportInput{
				Date:  c.String("date"),
				Limit: c.Int("limit"),
			}, svc.Clock.Now())
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			_, err = io.WriteString(stdout, output.Markdown)
			return err
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Erase all stored data (stop a running server first)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the irreversible erase"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("refusing to clear without --yes"))
			}
			if err := svc.Store.Clear(c.Context); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]bool{"cleared": true})
		},
	}
}

// screenshotsCmd creates the screenshots command group.
func screenshotsCmd(svc *app.Services) *cli.Command {
	return &cli.Command{
		Name:  "screenshots",
		Usage: "Inspect and prune stored screenshots",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List screenshots, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max items (default: 20)"},
				},
				Action: func(c *cli.Context) error {
					items, err := svc.Screenshots.List(c.Context, c.Int("limit"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"items": items, "count": len(items)})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a screenshot including its data URL",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					shot, err := svc.Screenshots.Get(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(shot)
				},
			},
			{
				Name:  "delete-old",
				Usage: "Delete screenshots older than N days",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Required: true, Usage: "Age threshold in days"},
				},
				Action: func(c *cli.Context) error {
					return deleted(svc.Screenshots.DeleteOlderThan(c.Context, c.Int("days")))
				},
			},
			{
				Name:  "clear",
				Usage: "Delete all screenshots",
				Action: func(c *cli.Context) error {
					return deleted(svc.Screenshots.ClearAll(c.Context))
				},
			},
		},
	}
}

// Helper functions

func deleted(n int, err error) error {
	if err != nil {
		return outputError(err)
	}
	return outputJSON(map[string]int{"deleted": n})
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var dErr *errors.DwellError
	if stderrors.As(err, &dErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	if stderrors.Is(err, context.Canceled) {
		return cli.Exit("interrupted", 1)
	}
	return cli.Exit(err.Error(), 1)
}
