// posctl inspects and drives a POS terminal's offline order queue.
//
// The status, queue, sync, review and network commands call a running
// pos-service. export-sqs reads the terminal's store directly and is meant for
// terminals whose service cannot be started; it refuses to run while the
// service answers on --pos-url.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/config"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "posctl:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	cfg := config.Load()

	return &cli.App{
		Name:      "posctl",
		Usage:     "inspect and sync a POS terminal's offline order queue",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pos-url", Value: "http://localhost:" + cfg.Port, EnvVars: []string{"POS_URL"}, Usage: "pos-service base URL"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "request timeout"},
			&cli.StringFlag{Name: "store", Value: cfg.Store, Usage: "terminal store backend (file|redis)"},
			&cli.StringFlag{Name: "data-dir", Value: cfg.DataDir, Usage: "file store directory"},
			&cli.StringFlag{Name: "redis-url", Value: cfg.RedisURL, Usage: "redis store URL"},
			&cli.StringFlag{Name: "terminal-id", Value: cfg.TerminalID, Usage: "terminal whose redis keys to read"},
		},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "show connectivity, queue length and the last sync outcome",
				Action: apiAction(http.MethodGet, func(*cli.Context) string { return "/offline/status" }),
			},
			{
				Name:   "queue",
				Usage:  "list orders waiting to be synced",
				Action: apiAction(http.MethodGet, func(*cli.Context) string { return "/offline/queue" }),
			},
			{
				Name:  "sync",
				Usage: "run a sync pass now",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "sync even when the terminal believes it is offline"},
				},
				Action: apiAction(http.MethodPost, func(c *cli.Context) string {
					if c.Bool("force") {
						return "/offline/sync?force=true"
					}
					return "/offline/sync"
				}),
			},
			{
				Name:  "review",
				Usage: "manage orders held for manual review",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list orders held for review",
						Action: apiAction(http.MethodGet, func(*cli.Context) string { return "/offline/review" }),
					},
					{
						Name:      "requeue",
						Usage:     "put a reviewed order back on the sync queue",
						ArgsUsage: "<local-id>",
						Before:    requireArg,
						Action: apiAction(http.MethodPost, func(c *cli.Context) string {
							return "/offline/review/" + url.PathEscape(c.Args().First()) + "/requeue"
						}),
					},
					{
						Name:      "discard",
						Usage:     "drop a reviewed order for good",
						ArgsUsage: "<local-id>",
						Before:    requireArg,
						Action: apiAction(http.MethodDelete, func(c *cli.Context) string {
							return "/offline/review/" + url.PathEscape(c.Args().First())
						}),
					},
				},
			},
			{
				Name:      "network",
				Usage:     "override the terminal's connectivity state",
				ArgsUsage: "online|offline",
				Action:    setNetwork,
			},
			{
				Name:  "export-sqs",
				Usage: "forward the local queue to the order commit queue",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "queue-url", EnvVars: []string{"ORDER_COMMIT_QUEUE_URL"}, Required: true, Usage: "SQS commit queue URL"},
				},
				Action: exportSQS,
			},
		},
	}
}

func requireArg(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one local id")
	}
	return nil
}

func apiAction(method string, path func(*cli.Context) string) cli.ActionFunc {
	return func(c *cli.Context) error {
		client := newAPIClient(c.String("pos-url"), c.Duration("timeout"))
		data, err := client.do(c.Context, method, path(c), nil)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, data)
	}
}

func setNetwork(c *cli.Context) error {
	var online bool
	switch c.Args().First() {
	case "online":
		online = true
	case "offline":
	default:
		return errors.New("expected online or offline")
	}

	client := newAPIClient(c.String("pos-url"), c.Duration("timeout"))
	data, err := client.do(c.Context, http.MethodPost, "/network", map[string]bool{"online": online})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, data)
}

var errServiceRunning = errors.New("pos-service is running; use `posctl sync` instead of exporting its store")

func exportSQS(c *cli.Context) error {
	if newAPIClient(c.String("pos-url"), c.Duration("timeout")).running(c.Context) {
		return fmt.Errorf("%s: %w", c.String("pos-url"), errServiceRunning)
	}

	log := logger.Initialize("development")
	defer log.Sync()

	store, closeStore, err := openStore(c, log)
	if err != nil {
		return err
	}
	defer closeStore()

	awsCfg, err := awspkg.LoadAWSConfig(c.Context)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	sender := awspkg.NewSQSQueue(awsCfg, c.String("queue-url"), log)

	n, err := exportQueue(c.Context, repository.NewQueueRepository(store, log), sender, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "forwarded %d order(s)\n", n)
	return nil
}

func openStore(c *cli.Context, log *zap.Logger) (database.Store, func(), error) {
	switch c.String("store") {
	case config.StoreRedis:
		client, err := database.NewRedisClient(c.Context, c.String("redis-url"), log)
		if err != nil {
			return nil, nil, err
		}
		return database.NewRedisStore(client, c.String("terminal-id")), func() { _ = client.Close() }, nil
	case config.StoreFile:
		store, err := database.NewFileStore(c.String("data-dir"))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", c.String("store"))
	}
}
