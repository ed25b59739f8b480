package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/expensekey/internal/calculator"
	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/internal/models"
)

func groupsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the ids of all stored groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			logger := commonRun(cfg)

			store, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			ids, err := store.ListGroupIDs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func balancesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balances <group-id>",
		Short: "Print member balances and suggested settlements for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			logger := commonRun(cfg)

			store, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()

			gateway := ledger.NewGateway(store, ledger.WithLogger(logger))
			defer gateway.Close()

			snap, err := gateway.Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeBalances(cmd.OutOrStdout(), snap)
		},
	}
}

// writeBalances renders a plain-text balance report for one group.
func writeBalances(out io.Writer, snap *ledger.Snapshot) error {
	stats, err := snap.MemberStats()
	if err != nil {
		return err
	}

	names := make(map[string]string)
	for _, m := range snap.Members() {
		names[m.ID] = m.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	fmt.Fprintf(out, "%s (%s)\n\n", snap.Name(), snap.ID())

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tPAID\tSHARE\tNET")
	balances := make(map[string]int64, len(stats))
	for _, s := range stats {
		balances[s.MemberID] = s.NetBalance
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			name(s.MemberID),
			models.FormatAmount(s.TotalPaid),
			models.FormatAmount(s.TotalShare),
			models.FormatAmount(s.NetBalance),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	settlements := calculator.SimplifyDebts(balances)
	if len(settlements) == 0 {
		_, err := fmt.Fprintln(out, "\nAll settled up.")
		return err
	}
	fmt.Fprintln(out, "\nTo settle up:")
	for _, s := range settlements {
		fmt.Fprintf(out, "  %s pays %s %s\n", name(s.FromMemberID), name(s.ToMemberID), models.FormatAmount(s.Amount))
	}
	return nil
}
