package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/novatech-assistant/internal/app/bootstrap"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

func newSyncCmd(root *rootOptions) *cobra.Command {
	var bucket, prefix string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the knowledge base from S3 into the knowledge directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.config()
			if bucket != "" {
				cfg.KnowledgeS3Bucket = bucket
			}
			if cmd.Flags().Changed("prefix") {
				cfg.KnowledgeS3Prefix = prefix
			}
			if strings.TrimSpace(cfg.KnowledgeS3Bucket) == "" {
				return fmt.Errorf("no bucket: pass --bucket or set KNOWLEDGE_S3_BUCKET")
			}
			logger := root.logger(cmd.ErrOrStderr())
			if err := bootstrap.SyncKnowledgeFromS3(cmd.Context(), cfg, logger); err != nil {
				return err
			}

			results, err := knowledge.ValidateDir(cfg.KnowledgeDir, nil)
			if err != nil {
				return err
			}
			if !validationPassed(results) {
				return fmt.Errorf("synced knowledge base in %s failed validation", cfg.KnowledgeDir)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced s3://%s/%s into %s\n", cfg.KnowledgeS3Bucket, cfg.KnowledgeS3Prefix, cfg.KnowledgeDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (overrides KNOWLEDGE_S3_BUCKET)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix (overrides KNOWLEDGE_S3_PREFIX)")
	return cmd
}
