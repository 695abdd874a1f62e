package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/pipeline"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover and verify sourdough pizza places in one or more cities",
	Example: `  sourdough-cli discover --city "Sandpoint, ID"
  sourdough-cli discover --cities-file cities.txt --concurrency 8 --resume`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cities, _ := cmd.Flags().GetStringArray("city")
		citiesFile, _ := cmd.Flags().GetString("cities-file")
		targets, err := collectTargets(cities, citiesFile)
		if err != nil {
			return err
		}

		opts := pipeline.OptionsFromConfig(cfg)
		if cmd.Flags().Changed("max-queries") {
			opts.MaxQueries, _ = cmd.Flags().GetInt("max-queries")
		}
		if cmd.Flags().Changed("limit") {
			opts.ResultLimit, _ = cmd.Flags().GetInt("limit")
		}
		if cmd.Flags().Changed("concurrency") {
			opts.MaxConcurrentVerifications, _ = cmd.Flags().GetInt("concurrency")
		}
		if cmd.Flags().Changed("resume") {
			opts.Resume, _ = cmd.Flags().GetBool("resume")
		}

		env, err := initPipeline(ctx, opts)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("discover starting", zap.Int("cities", len(targets)), zap.Bool("resume", opts.Resume))
		results, runErr := env.Coordinator.RunAll(ctx, targets)
		formatCityResults(os.Stdout, results)

		if runErr != nil {
			return eris.Wrap(runErr, "discover")
		}
		for _, r := range results {
			if r.Err != nil {
				return eris.Wrapf(r.Err, "discover %s", r.Target)
			}
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringArray("city", nil, `target city as "City, ST" (repeatable)`)
	discoverCmd.Flags().String("cities-file", "", "file with one \"City, ST\" per line")
	discoverCmd.Flags().Int("max-queries", 0, "cap on queries per city (sourdough queries are always kept)")
	discoverCmd.Flags().Int("limit", 20, "max results per query")
	discoverCmd.Flags().Int("concurrency", 5, "max candidates verified concurrently per city")
	discoverCmd.Flags().Bool("resume", false, "skip completed cities and already-checked candidates")
	rootCmd.AddCommand(discoverCmd)
}

// collectTargets merges --city values and --cities-file lines, in that
// order, dropping repeats.
func collectTargets(cities []string, file string) ([]model.Target, error) {
	lines := append([]string(nil), cities...)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, eris.Wrap(err, "open cities file")
		}
		defer f.Close() //nolint:errcheck
		fromFile, err := readTargetLines(f)
		if err != nil {
			return nil, eris.Wrap(err, "read cities file")
		}
		lines = append(lines, fromFile...)
	}

	seen := make(map[string]bool)
	var targets []model.Target
	for _, l := range lines {
		t, err := model.ParseTarget(l)
		if err != nil {
			return nil, eris.Wrap(err, "parse city")
		}
		key := strings.ToLower(t.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, eris.New("at least one --city or --cities-file entry is required")
	}
	return targets, nil
}

// readTargetLines returns non-blank lines that are not # comments.
func readTargetLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func formatCityResults(out io.Writer, results []pipeline.CityResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CITY\tFOUND\tPROCESSED\tVERIFIED\tINSERTED\tDUPLICATE\tFAILED\tQUERIES_FAILED\tNOTE")
	for _, r := range results {
		note := ""
		switch {
		case r.Skipped:
			note = "skipped (completed earlier)"
		case r.Err != nil:
			note = r.Err.Error()
		}
		var s model.RunSummary
		if r.Summary != nil {
			s = *r.Summary
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Target, s.Found, s.Processed, s.Verified, s.Inserted,
			s.SkippedDuplicate, s.Failed, s.QueriesFailed, note)
	}
	_ = w.Flush()
}
