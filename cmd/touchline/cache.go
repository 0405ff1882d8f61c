package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/touchline/internal/learned"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the learned correction cache",
	}
	cmd.AddCommand(newCacheListCmd(c), newCacheLookupCmd(c))
	return cmd
}

func newCacheListCmd(c *cli) *cobra.Command {
	var minSeen int
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned corrections, most frequently seen first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), func(s *learned.Store) error {
				return c.listEntries(s, minSeen, confirmed)
			})
		},
	}
	cmd.Flags().IntVar(&minSeen, "min-seen", 1, "only list entries seen at least this often")
	cmd.Flags().BoolVar(&confirmed, "confirmed", false, "only list entries that bypass scoring")
	return cmd
}

func newCacheLookupCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <text>",
		Short: "Show the learned correction for a misspelling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s *learned.Store) error {
				e, ok := s.Entry(args[0])
				if !ok {
					fmt.Fprintf(c.out, "%q: not learned\n", args[0])
					return nil
				}
				fmt.Fprintf(c.out, "%q -> %q\n", args[0], e.Canonical)
				fmt.Fprintf(c.out, "  seen:       %d\n", e.SeenCount)
				fmt.Fprintf(c.out, "  confidence: %.2f\n", e.Confidence)
				fmt.Fprintf(c.out, "  avg score:  %.1f\n", e.ScoreAverage)
				fmt.Fprintf(c.out, "  confirmed:  %t\n", e.Confirmed())
				return nil
			})
		},
	}
}

// withStore opens the configured learned cache, runs fn and closes it.
func (c *cli) withStore(ctx context.Context, fn func(*learned.Store) error) error {
	backend, err := c.reg.CreateBackend(ctx, c.cfg.Learned)
	if err != nil {
		return fmt.Errorf("open learned cache: %w", err)
	}
	defer closeBackend(backend)

	store, err := learned.Open(ctx, backend)
	if err != nil {
		return err
	}
	return fn(store)
}

func (c *cli) listEntries(s *learned.Store, minSeen int, confirmedOnly bool) error {
	type row struct {
		key string
		learned.Entry
	}
	var rows []row
	for k, e := range s.Entries() {
		if e.SeenCount < minSeen || (confirmedOnly && !e.Confirmed()) {
			continue
		}
		rows = append(rows, row{k, e})
	}
	slices.SortFunc(rows, func(a, b row) int {
		return cmp.Or(cmp.Compare(b.SeenCount, a.SeenCount), strings.Compare(a.key, b.key))
	})

	if len(rows) == 0 {
		fmt.Fprintln(c.out, "no learned corrections")
		return nil
	}
	fmt.Fprintf(c.out, "%-24s %-24s %5s %6s %6s\n", "MISSPELLING", "CORRECT", "SEEN", "CONF", "AVG")
	for _, r := range rows {
		mark := ""
		if r.Confirmed() {
			mark = " *"
		}
		fmt.Fprintf(c.out, "%-24s %-24s %5d %6.2f %6.1f%s\n", r.key, r.Canonical, r.SeenCount, r.Confidence, r.ScoreAverage, mark)
	}
	fmt.Fprintf(c.out, "\n%d entries (* confirmed)\n", len(rows))
	return nil
}
