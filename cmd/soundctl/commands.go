package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Show where logical asset paths are served from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := ctx.ensureSources(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(args))
			for _, logical := range args {
				loc, err := src.Store.Resolve(logical)
				if err != nil {
					return err
				}
				size := "-"
				if loc.Hashed {
					size = humanize.Bytes(uint64(loc.Entry.Size))
				}
				rows = append(rows, []string{logical, loc.URL(), strconv.FormatBool(loc.Hashed), size})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Logical", "Location", "Hashed", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fetch <path>",
		Short: "Fetch an asset and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := ctx.ensureSources(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			data, err := src.Store.FetchBytes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the fetched bytes to this file")
	return cmd
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "events [prefix]",
		Short: "List registered sound events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := ctx.ensureSources(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			rows := make([][]string, 0)
			for _, id := range src.Registry.IDs() {
				if !strings.HasPrefix(id, prefix) {
					continue
				}
				def, _ := src.Registry.Lookup(id)
				rows = append(rows, []string{id, strconv.Itoa(len(def.Sounds)), def.Subtitle})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Event", "Variants", "Subtitle"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newPickCommand(ctx *commandContext) *cobra.Command {
	var draws int
	var seed uint64
	cmd := &cobra.Command{
		Use:   "pick <event>",
		Short: "Draw concrete clips for an event and show how often each came up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if draws < 1 {
				return fmt.Errorf("-n must be at least 1, got %d", draws)
			}
			ctx.seed = seed
			src, err := ctx.ensureSources(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			counts := make(map[string]int)
			for i := 0; i < draws; i++ {
				clip, err := src.Registry.ResolveConcrete(args[0])
				if err != nil {
					return err
				}
				counts[clip.Name]++
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool {
				if counts[names[i]] != counts[names[j]] {
					return counts[names[i]] > counts[names[j]]
				}
				return names[i] < names[j]
			})

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				n := counts[name]
				rows = append(rows, []string{
					name,
					humanize.Comma(int64(n)),
					fmt.Sprintf("%.1f%%", 100*float64(n)/float64(draws)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Clip", "Draws", "Share"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&draws, "draws", "n", 1000, "Number of draws")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible draws (0 uses config)")
	return cmd
}
