package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/novatech-assistant/internal/app/bootstrap"
	"github.com/wolfman30/novatech-assistant/internal/dynamic"
)

func newRefreshCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "refresh [news|market|social|all]...",
		Short:     "Fetch external data and write it into the knowledge base",
		ValidArgs: []string{dynamic.KindNews, dynamic.KindMarket, dynamic.KindSocial, dynamic.KindAll},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.config()
			app, err := bootstrap.Build(cmd.Context(), cfg, "cli", root.logger(cmd.ErrOrStderr()), bootstrap.BuildOptions{SkipLLM: true, VerifyRedis: true})
			if err != nil {
				return err
			}
			defer app.Close()

			if len(app.Refresher.Categories()) == 0 {
				return fmt.Errorf("no dynamic sources configured; set NEWS_API_KEY, FINNHUB_API_KEY or SOCIAL_QUERY")
			}
			report, refreshErr := app.Refresher.Refresh(cmd.Context(), args...)
			if errors.Is(refreshErr, dynamic.ErrNotConfigured) {
				return refreshErr
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if refreshErr != nil && len(report.Updated) == 0 {
				return refreshErr
			}
			return nil
		},
	}
	return cmd
}
