package main

import (
	"io"

	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

type rootOptions struct {
	knowledgeDir string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "assistantctl",
		Short:         "Operate the NovaTech company assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.knowledgeDir, "knowledge-dir", "", "knowledge base directory (overrides KNOWLEDGE_DIR)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newValidateCmd(opts),
		newAskCmd(opts),
		newRefreshCmd(opts),
		newSyncCmd(opts),
		newSessionsCmd(),
	)
	return root
}

// config loads the environment and applies flag overrides.
func (o *rootOptions) config() *appconfig.Config {
	cfg := appconfig.Load()
	if o.knowledgeDir != "" {
		cfg.KnowledgeDir = o.knowledgeDir
	}
	// one-shot commands never watch files or schedule refreshes
	cfg.KnowledgeWatch = false
	cfg.RefreshInterval = 0
	return cfg
}

// logger writes to the command's stderr so stdout stays machine-readable.
func (o *rootOptions) logger(w io.Writer) *logging.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return logging.NewWithWriter(w, level, logging.FormatText)
}
