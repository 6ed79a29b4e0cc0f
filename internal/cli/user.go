package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelter/internal/sqlite"
	"github.com/mesh-intelligence/shelter/pkg/types"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Issue and check staff credentials",
	}
	cmd.AddCommand(newUserSignupCmd(), newUserLoginCmd())
	return cmd
}

func newUserSignupCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "signup <handle>",
		Short: "Issue a credential",
		Long:  "Issue a credential for handle. The password is read from --password or,\nwhen that is empty, from the first line of standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, secret)
			if err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				id, err := b.IssueCredential(ctx, args[0], pw)
				if err != nil {
					return fmt.Errorf("signup %s: %w", args[0], err)
				}
				return render(cmd, id, func(w io.Writer) {
					okColor.Fprintf(w, "Credential %d issued for %s\n", id.ID, id.Handle)
				})
			})
		},
	}
	cmd.Flags().StringVar(&secret, "password", "", "password (default: read from stdin)")
	return cmd
}

func newUserLoginCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "login <handle>",
		Short: "Check a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, secret)
			if err != nil {
				return err
			}
			return withShelter(cmd, func(ctx context.Context, b *sqlite.Backend) error {
				id, err := b.Authenticate(ctx, args[0], pw)
				if err != nil {
					return err
				}
				return render(cmd, id, func(w io.Writer) {
					okColor.Fprintf(w, "Authenticated %s\n", id.Handle)
				})
			})
		},
	}
	cmd.Flags().StringVar(&secret, "password", "", "password (default: read from stdin)")
	return cmd
}

// readSecret returns flagValue, or the first line of stdin when it is empty.
func readSecret(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password required: %w", types.ErrInvalidData)
	}
	return line, nil
}
