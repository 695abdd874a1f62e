package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/query"
)

var planCmd = &cobra.Command{
	Use:   `plan "City, ST"`,
	Short: "Print the query plan for a city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := model.ParseTarget(args[0])
		if err != nil {
			return err
		}
		planner, err := buildPlanner()
		if err != nil {
			return err
		}

		maxQueries := cfg.Search.MaxQueries
		if cmd.Flags().Changed("max-queries") {
			maxQueries, _ = cmd.Flags().GetInt("max-queries")
		}
		formatPlan(os.Stdout, query.Truncate(planner.Plan(target), maxQueries))
		return nil
	},
}

func init() {
	planCmd.Flags().Int("max-queries", 0, "cap on queries (sourdough queries are always kept)")
	rootCmd.AddCommand(planCmd)
}

func formatPlan(out io.Writer, queries []model.Query) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCHANNEL\tID\tTEXT")
	for i, q := range queries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, q.Channel, q.ID, q.Text)
	}
	_ = w.Flush()
}
