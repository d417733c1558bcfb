package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/infrastructure/config"
	"github.com/iho/vslaledger/internal/infrastructure/logger"
	"github.com/iho/vslaledger/internal/infrastructure/postgres"
)

var (
	baseURL    string
	timeout    time.Duration
	jsonOutput bool
)

// errInconsistent makes `reconcile` exit non-zero without printing twice.
var errInconsistent = errors.New("ledger is inconsistent")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInconsistent) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vslaledger-cli",
		Short:         "VSLA ledger CLI tool",
		Long:          `A command line interface for inspecting VSLA group ledgers and managing the database schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON instead of tables")

	rootCmd.AddCommand(
		balanceCmd(),
		entriesCmd(),
		scheduleCmd(),
		reconcileCmd(),
		migrateCmd(),
	)
	return rootCmd
}

func client() *apiClient {
	return newAPIClient(baseURL, timeout)
}

func parseID(arg, name string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return id, nil
}

func balanceCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance GROUP_ID",
		Short: "Show fund balances of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "group id")
			if err != nil {
				return err
			}
			res, err := client().balance(cmd.Context(), groupID, asOf)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printBalance(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Balance at the end of this date (YYYY-MM-DD)")
	return cmd
}

func entriesCmd() *cobra.Command {
	var q entriesQuery

	cmd := &cobra.Command{
		Use:   "entries GROUP_ID",
		Short: "List cashbook entries of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "group id")
			if err != nil {
				return err
			}
			res, err := client().entries(cmd.Context(), groupID, q)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printEntries(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.From, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", domain.DefaultPageSize, "Entries per page")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "schedule LOAN_ID",
		Short: "Show the repayment schedule of a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0], "loan id")
			if err != nil {
				return err
			}
			res, err := client().schedule(cmd.Context(), loanID, asOf)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printSchedule(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Evaluate overdue status on this date (YYYY-MM-DD)")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile GROUP_ID",
		Short: "Verify the running balances of a group ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "group id")
			if err != nil {
				return err
			}
			res, err := client().reconcile(cmd.Context(), groupID)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printVerification(cmd.OutOrStdout(), res)
			}
			if !res.Consistent {
				return errInconsistent
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL    string
		migrationsPath string
		steps          int
	)

	migrator := func() (*postgres.Migrator, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if databaseURL == "" {
			databaseURL = cfg.DatabaseURL
		}
		if migrationsPath == "" {
			migrationsPath = cfg.MigrationsPath
		}
		log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: os.Stderr})
		return postgres.NewMigrator(databaseURL, migrationsPath, log), nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "Migrations directory (default MIGRATIONS_PATH)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Up()
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			m, err := migrator()
			if err != nil {
				return err
			}
			return m.Down(steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBalance(w io.Writer, res *dto.BalanceResponse) {
	fmt.Fprintf(w, "Group %d", res.GroupID)
	if res.AsOf != nil {
		fmt.Fprintf(w, " as of %s", *res.AsOf)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, fund := range domain.Funds {
		fmt.Fprintf(tw, "%s\t%s\t\n", fund, res.Balances[string(fund)].StringFixed(2))
	}
	fmt.Fprintf(tw, "total\t%s\t\n", res.Total.StringFixed(2))
	_ = tw.Flush()
}

func printEntries(w io.Writer, res *dto.ListEntriesResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tSTATUS\tTOTAL\tDESCRIPTION")
	for _, e := range res.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.TransactionDate, e.Category, e.Status, e.TotalBalance.StringFixed(2), truncate(e.Description, 40))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "page %d, %d of %d entries\n", res.Page, len(res.Entries), res.Total)
}

func printSchedule(w io.Writer, res *dto.ScheduleResponse) {
	if res.Loan != nil {
		fmt.Fprintf(w, "Loan %d (%s), monthly payment %s, as of %s\n",
			res.Loan.ID, res.Loan.Status, res.MonthlyPayment.StringFixed(2), res.AsOf)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDUE\tPRINCIPAL\tINTEREST\tTOTAL\tPAID\tSTATUS\tLATE FEE")
	for _, inst := range res.Installments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			inst.InstallmentNumber,
			inst.DueDate,
			inst.PrincipalAmount.StringFixed(2),
			inst.InterestAmount.StringFixed(2),
			inst.TotalAmount.StringFixed(2),
			inst.AmountPaid.StringFixed(2),
			inst.Status,
			inst.LateFee.StringFixed(2),
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "due %s, paid %s, late fees %s\n",
		res.TotalDue.StringFixed(2), res.TotalPaid.StringFixed(2), res.TotalLateFees.StringFixed(2))
}

func printVerification(w io.Writer, res *dto.VerificationResponse) {
	if res.Consistent {
		fmt.Fprintf(w, "Group %d is consistent (%d entries checked)\n", res.GroupID, res.EntriesChecked)
		return
	}

	fmt.Fprintf(w, "Group %d is INCONSISTENT (%d entries checked, %d violations)\n",
		res.GroupID, res.EntriesChecked, len(res.Violations))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tKIND\tFUND\tEXPECTED\tACTUAL")
	for _, v := range res.Violations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.EntryID, v.Kind, v.Fund, v.Expected, v.Actual)
	}
	_ = tw.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
