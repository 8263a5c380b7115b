package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/veilport/veilport/internal/auth"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/repository/postgres"
	"github.com/veilport/veilport/internal/services"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminBootstrapCmd())
	return cmd
}

func newAdminBootstrapCmd() *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the initial admin account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Admin password: ")
			if err != nil {
				return err
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := services.NewUserService(
				postgres.NewUserRepository(db),
				auth.NewPasswordHasher(12),
				auth.NewTOTP("Veilport"),
				logger.New(logger.Config{Level: "warn", Format: "console"}),
			)

			u, err := svc.EnsureAdmin(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}

			fmt.Printf("admin %q ready (id %d)\n", u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&email, "email", "admin@localhost", "admin email")
	return cmd
}

// promptPassword reads a password without echoing it. A non-terminal stdin
// falls back to a plain line read so the command stays scriptable.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", err
	}
	return line, nil
}
