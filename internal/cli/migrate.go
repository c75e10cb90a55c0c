package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-console/internal/engine"
	"github.com/celerix-dev/celerix-console/internal/logging"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

// NewMigrateCommand copies every collection from one store to another.
func NewMigrateCommand(root *RootOptions) *cobra.Command {
	var from, to string
	var disableTLS bool

	cmd := &cobra.Command{
		Use:   "migrate --from <store> --to <store>",
		Short: "Copy every collection between stores",
		Long: `Copy every collection from one store to another, overwriting same-named collections.

Stores are written as driver:location:
  file:./data            JSON files in a directory
  sqlite:./console.db    a SQLite database
  remote:host:7001       a running store daemon`,
		Example: `  celerix-console migrate --from file:./data --to sqlite:./data/console.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcOpts, err := parseStoreRef(from, disableTLS)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			dstOpts, err := parseStoreRef(to, disableTLS)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			src, err := sdk.Open(srcOpts)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			dst, err := sdk.Open(dstOpts)
			if err != nil {
				return fmt.Errorf("open destination: %w", err)
			}

			n, err := engine.Migrate(src, dst)
			if cerr := dst.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close destination: %w", cerr)
			}
			if err != nil {
				return err
			}

			result := map[string]any{"from": from, "to": to, "collections": n}
			return root.formatter(cmd).Emit(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "migrated %d collections from %s to %s\n", n, from, to)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source store (required)")
	cmd.Flags().StringVar(&to, "to", "", "destination store (required)")
	cmd.Flags().BoolVar(&disableTLS, "disable-tls", false, "talk to remote stores in plain text")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

// parseStoreRef turns driver:location into store options.
func parseStoreRef(ref string, disableTLS bool) (sdk.Options, error) {
	driver, loc, ok := strings.Cut(ref, ":")
	if !ok || loc == "" {
		return sdk.Options{}, fmt.Errorf("store %q must be driver:location", ref)
	}
	opts := sdk.Options{Logger: logging.Discard()}
	switch driver {
	case sdk.DriverFile:
		opts.Driver = sdk.DriverFile
		opts.DataDir = loc
	case sdk.DriverSQLite:
		opts.Driver = sdk.DriverSQLite
		opts.SQLitePath = loc
	case "remote":
		opts.Addr = loc
		opts.DisableTLS = disableTLS
	default:
		return sdk.Options{}, fmt.Errorf("unknown store driver %q", driver)
	}
	return opts, nil
}
