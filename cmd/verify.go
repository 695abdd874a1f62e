package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sourdough-cli/internal/classify"
	"github.com/sells-group/sourdough-cli/internal/dedup"
	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a single candidate without writing anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("verify"); err != nil {
			return err
		}

		raw := model.RawCandidate{SourceQuery: "adhoc"}
		raw.Name, _ = cmd.Flags().GetString("name")
		raw.City, _ = cmd.Flags().GetString("city")
		raw.State, _ = cmd.Flags().GetString("state")
		raw.Website, _ = cmd.Flags().GetString("website")
		raw.Description, _ = cmd.Flags().GetString("description")
		raw.Category, _ = cmd.Flags().GetString("category")
		if raw.Name == "" {
			return eris.New("--name is required")
		}
		cand := model.NewCanonical(dedup.Key(raw), raw)

		if ok, reason := classify.New(cfg.Classify).Classify(&cand); !ok {
			fmt.Fprintf(os.Stderr, "warning: not classified as a pizza establishment (%s)\n", reason)
		}

		verdict := buildVerifier().Verify(ctx, cand)

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		}
		fmt.Printf("%s: verified=%t\n", cand.Name, verdict.Verified)
		fmt.Println(verify.Provenance(verdict))
		for _, ev := range verdict.Evidence {
			if ev.Err != "" {
				fmt.Printf("  %s: %s\n", ev.Source, ev.Err)
			}
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("name", "", "establishment name")
	verifyCmd.Flags().String("city", "", "city")
	verifyCmd.Flags().String("state", "", "two-letter state")
	verifyCmd.Flags().String("website", "", "website URL")
	verifyCmd.Flags().String("description", "", "business description")
	verifyCmd.Flags().String("category", "", "business category")
	verifyCmd.Flags().Bool("json", false, "print the full verdict as JSON")
	rootCmd.AddCommand(verifyCmd)
}
