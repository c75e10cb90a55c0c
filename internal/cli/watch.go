package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-console/internal/config"
	"github.com/celerix-dev/celerix-console/internal/detector"
	"github.com/celerix-dev/celerix-console/internal/logging"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/internal/schedule"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

type watchOptions struct {
	configPath string
	storeAddr  string
	driver     string
	dataDir    string
	sqlitePath string
	interval   time.Duration
	bell       bool
}

// NewWatchCommand runs a local change detector and prints its toasts.
func NewWatchCommand(root *RootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print new-sale and new-customer notifications as they happen",
		Long: `Watch the store for new orders and customers.

Runs the change detector in this process against the configured store and prints
every notification it raises, ringing the terminal bell. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", os.Getenv("CELERIX_CONFIG"), "console config file")
	cmd.Flags().StringVar(&opts.storeAddr, "store-addr", "", "remote store daemon address")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "embedded store driver (file|sqlite)")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "embedded store directory")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database path")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "polling interval (default from config)")
	cmd.Flags().BoolVar(&opts.bell, "bell", true, "ring the terminal bell on new notifications")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *RootOptions, opts *watchOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.storeAddr != "" {
		cfg.Store.RemoteAddr = opts.storeAddr
	}
	if opts.driver != "" {
		cfg.Store.Driver = opts.driver
	}
	if opts.dataDir != "" {
		cfg.Store.DataDir = opts.dataDir
	}
	if opts.sqlitePath != "" {
		cfg.Store.SQLitePath = opts.sqlitePath
	}
	if opts.interval > 0 {
		cfg.Detector.Interval = opts.interval
	}

	logger := logging.New(cfg.Log, cmd.ErrOrStderr(), "celerix-console")
	store, err := sdk.Open(sdk.Options{
		Addr:       cfg.Store.RemoteAddr,
		DisableTLS: cfg.Server.DisableTLS,
		Driver:     cfg.Store.Driver,
		DataDir:    cfg.Store.DataDir,
		SQLitePath: cfg.Store.SQLitePath,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	var chime notify.Chime = notify.NopChime{}
	if opts.bell {
		chime = &notify.BellChime{W: cmd.ErrOrStderr()}
	}

	sched := schedule.New(clock.New())
	queue := notify.NewQueue(sched,
		notify.WithChime(chime),
		notify.WithLogger(logger),
		notify.WithDefaultTTL(cfg.Notifications.DefaultTTL))
	defer queue.Close()

	events, cancel := queue.Subscribe(16)
	defer cancel()

	det := detector.New(store, queue, sched,
		detector.WithInterval(cfg.Detector.Interval),
		detector.WithTTL(cfg.Notifications.DetectorTTL),
		detector.WithLogger(logger))
	det.Start()
	defer det.Stop()

	out := cmd.OutOrStdout()
	if root.Format == "text" {
		fmt.Fprintf(out, "watching %s store every %s\n", store.Mode, cfg.Detector.Interval)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != notify.EventPushed {
				continue
			}
			if err := printToast(out, root.Format, ev.Notification); err != nil {
				return err
			}
		}
	}
}

func printToast(w io.Writer, format string, n notify.Notification) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(n)
	}
	_, err := fmt.Fprintf(w, "%s [%s] %s: %s\n",
		n.CreatedAt.Local().Format("15:04:05"), n.Category, n.Title, n.Message)
	return err
}
