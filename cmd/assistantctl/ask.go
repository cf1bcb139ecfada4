package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wolfman30/novatech-assistant/internal/app/bootstrap"
	"github.com/wolfman30/novatech-assistant/internal/conversation"
)

type replier interface {
	Reply(ctx context.Context, req conversation.ChatRequest) (conversation.ChatResponse, error)
}

type askOptions struct {
	sessionID  string
	jsonOutput bool
	noLLM      bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question in-process, or chat interactively with no argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.config()
			app, err := bootstrap.Build(cmd.Context(), cfg, "cli", root.logger(cmd.ErrOrStderr()), bootstrap.BuildOptions{SkipLLM: opts.noLLM})
			if err != nil {
				return err
			}
			defer app.Close()

			if opts.sessionID == "" {
				opts.sessionID = uuid.NewString()
			}
			if len(args) == 1 {
				return askOnce(cmd.Context(), app.Service, opts, args[0], cmd.OutOrStdout())
			}
			return chatLoop(cmd.Context(), app.Service, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session id to continue (default: a new one)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the full response as JSON")
	cmd.Flags().BoolVar(&opts.noLLM, "no-llm", false, "skip model providers even when configured")
	return cmd
}

func askOnce(ctx context.Context, r replier, opts *askOptions, question string, out io.Writer) error {
	resp, err := r.Reply(ctx, conversation.ChatRequest{Message: question, SessionID: opts.sessionID})
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintln(out, resp.Response)
	fmt.Fprintf(out, "\n[intent=%s confidence=%.2f route=%s source=%s state=%s]\n",
		resp.Intent, resp.Confidence, resp.Route, resp.Source, resp.State)
	return nil
}

// chatLoop reads one question per line until EOF or an exit word.
func chatLoop(ctx context.Context, r replier, opts *askOptions, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "NovaTech assistant (session %s). Type 'exit' to quit.\n", opts.sessionID)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := askOnce(ctx, r, opts, line, out); err != nil {
			return err
		}
	}
}
