package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/repository/postgres"
	"github.com/veilport/veilport/internal/services"
)

func newCodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage premium codes",
	}
	cmd.AddCommand(newCodesCreateCmd())
	cmd.AddCommand(newCodesListCmd())
	return cmd
}

func newCodesCreateCmd() *cobra.Command {
	var (
		code      string
		duration  string
		hours     int
		validDays int
		notes     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a premium code",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := services.NewPremiumService(
				postgres.NewPremiumRepository(db),
				postgres.NewUserRepository(db),
				logger.New(logger.Config{Level: "warn", Format: "console"}),
			)

			validFor := time.Duration(validDays) * 24 * time.Hour
			c, err := svc.CreateCode(cmd.Context(), code, duration, hours, validFor, notes)
			if err != nil {
				return err
			}

			fmt.Printf("code %s grants %dh, redeemable until %s\n",
				c.Code, c.DurationHours, c.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "redemption string (generated when empty)")
	cmd.Flags().StringVar(&duration, "duration", "", "human-readable grant label, e.g. \"1 month\"")
	cmd.Flags().IntVar(&hours, "hours", 0, "hours of premium the code grants")
	cmd.Flags().IntVar(&validDays, "valid-days", 30, "days the code stays redeemable")
	cmd.Flags().StringVar(&notes, "notes", "", "internal notes")
	cmd.MarkFlagRequired("duration")
	cmd.MarkFlagRequired("hours")
	return cmd
}

func newCodesListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List premium codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := services.NewPremiumService(
				postgres.NewPremiumRepository(db),
				postgres.NewUserRepository(db),
				logger.New(logger.Config{Level: "warn", Format: "console"}),
			)

			codes, total, err := svc.ListCodes(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODE\tHOURS\tUSED\tEXPIRES\tNOTES")
			for _, c := range codes {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
					c.ID, c.Code, c.DurationHours, formatUsedBy(c),
					c.ExpiresAt.Format("2006-01-02"), c.Notes)
			}
			w.Flush()

			fmt.Printf("%d of %d codes\n", len(codes), total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum codes to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the listing")
	return cmd
}

// formatUsedBy renders the claim column. Rows written by older tooling can be
// marked used without a recorded user.
func formatUsedBy(c *premium.Code) string {
	switch {
	case !c.IsUsed:
		return "-"
	case c.UsedBy == nil:
		return "used"
	default:
		return fmt.Sprintf("user %d", *c.UsedBy)
	}
}
