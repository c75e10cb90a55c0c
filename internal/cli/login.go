package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewLoginCommand opens a session and prints its token.
func NewLoginCommand(root *RootOptions) *cobra.Command {
	var user, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open an operator session and print its token",
		Long: `Open an operator session and print the bearer token.

Export it as CELERIX_TOKEN or pass it with --token to the other commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CELERIX_ADMIN_PASSWORD")
			}
			res, err := root.client().Login(cmd.Context(), user, password)
			if err != nil {
				return err
			}
			return root.formatter(cmd).Emit(res, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, res.Token)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", envOr("CELERIX_ADMIN_USER", "admin"), "operator username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "operator password (default $CELERIX_ADMIN_PASSWORD)")
	return cmd
}

// NewStatusesCommand prints the status catalog.
func NewStatusesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "statuses",
		Short: "List the recognized order and tracking statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := root.client().Statuses(cmd.Context())
			if err != nil {
				return err
			}
			out := root.formatter(cmd)
			return out.Emit(res, func(w io.Writer) error {
				rows := [][]string{}
				for _, d := range res.Orders {
					rows = append(rows, []string{"order", d.Value, d.Label, string(d.Category)})
				}
				for _, d := range res.Tracking {
					rows = append(rows, []string{"tracking", d.Value, d.Label, string(d.Category)})
				}
				return out.Table([]string{"KIND", "VALUE", "LABEL", "CATEGORY"}, rows)
			})
		},
	}
}
