package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rtltb/datarecording"
	"github.com/sarchlab/rtltb/sim"
)

var resultsCmd = &cobra.Command{
	Use:   "results [recording.sqlite3]",
	Short: "Print the verdicts stored in a recording.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mismatches, _ := cmd.Flags().GetInt("mismatches")
		return printResults(cmd.OutOrStdout(), args[0], mismatches)
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().Int("mismatches", 10,
		"Maximum number of recorded mismatches to print per run")
}

func printResults(w io.Writer, path string, maxMismatches int) error {
	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	datarecording.MapTables(reader)

	ctx := context.Background()

	verdicts, _, err := reader.Query(ctx, "verdicts",
		datarecording.QueryParams{OrderBy: "RunID"})
	if err != nil {
		return err
	}

	failed := false

	for _, row := range verdicts {
		v := row.(*datarecording.VerdictEntry)

		result := "PASS"
		if !v.Passed {
			result = "FAIL"
			failed = true
		}

		fmt.Fprintf(w,
			"%s %s (run %s): expected=%d, received=%d, matched=%d, errors=%d, "+
				"sim time %s, wall time %s\n",
			result, v.Name, v.RunID, v.Expected, v.Received, v.Matched,
			v.Errors, sim.VTime(v.SimTime),
			time.Duration(v.WallTime).Round(time.Millisecond))

		if v.Reason != "" {
			fmt.Fprintf(w, "  %s\n", v.Reason)
		}

		err = printMismatches(ctx, w, reader, v.RunID, maxMismatches)
		if err != nil {
			return err
		}
	}

	if failed {
		return errTestFailed
	}

	return nil
}

func printMismatches(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	runID string,
	limit int,
) error {
	if limit <= 0 {
		return nil
	}

	rows, total, err := reader.Query(ctx, "scoreboard_comparisons",
		datarecording.QueryParams{
			Where:   "RunID = ? AND Matched = ?",
			Args:    []any{runID, false},
			OrderBy: "Number",
			Limit:   limit,
		})
	if err != nil {
		return err
	}

	for _, row := range rows {
		c := row.(*datarecording.ComparisonEntry)
		fmt.Fprintf(w, "  %s: mismatch #%d at %s, expected %s, received %s\n",
			c.Scoreboard, c.Number, sim.VTime(c.Time), c.Expected, c.Received)
	}

	if total > len(rows) {
		fmt.Fprintf(w, "  ... %d more mismatches\n", total-len(rows))
	}

	return nil
}
