package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/query"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every knowledge category file and the query tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.config()
			results, err := knowledge.ValidateDir(cfg.KnowledgeDir, nil)
			if err != nil {
				return err
			}
			tablesErr := validateTables(cfg.QueryTablesPath)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"valid": validationPassed(results) && tablesErr == nil, "results": results}); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tFILE\tREQUIRED\tSTATUS\tSIZE")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\n", r.Category, r.File, r.Required, validationStatus(r), r.Size)
				}
				_ = tw.Flush()
				if tablesErr != nil {
					fmt.Fprintf(out, "query tables: %v\n", tablesErr)
				} else {
					fmt.Fprintln(out, "query tables: ok")
				}
			}

			if tablesErr != nil {
				return fmt.Errorf("query tables invalid: %w", tablesErr)
			}
			if !validationPassed(results) {
				return fmt.Errorf("knowledge base in %s failed validation", cfg.KnowledgeDir)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func validateTables(path string) error {
	if path == "" {
		_, err := query.DefaultTables()
		return err
	}
	_, err := query.LoadTablesFile(path)
	return err
}

func validationStatus(r knowledge.ValidationResult) string {
	switch {
	case r.Error != "":
		return "error: " + r.Error
	case !r.Exists && r.Required:
		return "missing"
	case !r.Exists:
		return "absent (optional)"
	case !r.ValidJSON:
		return "invalid json"
	default:
		return "ok"
	}
}

func validationPassed(results []knowledge.ValidationResult) bool {
	for _, r := range results {
		if !r.OK() {
			return false
		}
	}
	return true
}
