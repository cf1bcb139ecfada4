package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// sessionsClient talks to a running server; sessions live in its memory.
type sessionsClient struct {
	server string
	http   *http.Client
}

func newSessionsCmd() *cobra.Command {
	client := &sessionsClient{http: &http.Client{Timeout: 10 * time.Second}}
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect conversations held by a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.print(cmd, http.MethodGet, "/api/conversations")
		},
	}
	cmd.PersistentFlags().StringVar(&client.server, "server", "http://localhost:8080", "assistant base URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's stats and recent context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.print(cmd, http.MethodGet, "/api/conversation/"+url.PathEscape(args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Evict a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.print(cmd, http.MethodDelete, "/api/conversation/"+url.PathEscape(args[0]))
		},
	})
	return cmd
}

func (c *sessionsClient) print(cmd *cobra.Command, method, path string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), method, strings.TrimRight(c.server, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", c.server, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}
