// Package main provides rankctl, a CLI for the admin surface of the
// leaderboard service: adding and removing leaderboard configurations
// without having to hand-craft bearer-token requests.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	bearerToken string
	httpClient  = &http.Client{Timeout: 10 * time.Second}
)

func main() {
	root := &cobra.Command{
		Use:   "rankctl",
		Short: "Manage leaderboard configurations on a leaderboard service master",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the master node")
	root.PersistentFlags().StringVar(&bearerToken, "token", "", "admin bearer token")

	root.AddCommand(addCmd())
	root.AddCommand(deleteCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addCmd() *cobra.Command {
	var appID, rankKey, appSecret, cronExpr, remark string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a leaderboard configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"appid":           appID,
				"rank_key":        rankKey,
				"app_secret":      appSecret,
				"cron_expression": cronExpr,
				"remark":          remark,
			}
			return doRequest(http.MethodPost, "/api/rank/add_rank_config", body)
		},
	}
	cmd.Flags().StringVar(&appID, "appid", "", "tenant application id")
	cmd.Flags().StringVar(&rankKey, "rank-key", "", "leaderboard rank key")
	cmd.Flags().StringVar(&appSecret, "secret", "", "tenant signing secret")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "reset cron expression, empty for no reset")
	cmd.Flags().StringVar(&remark, "remark", "", "free-text description")
	_ = cmd.MarkFlagRequired("appid")
	_ = cmd.MarkFlagRequired("rank-key")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func deleteCmd() *cobra.Command {
	var appID, rankKey string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a leaderboard configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"appid": {appID}, "rank_key": {rankKey}}
			path := "/api/rank/delete_rank_config?" + query.Encode()
			return doRequest(http.MethodDelete, path, nil)
		},
	}
	cmd.Flags().StringVar(&appID, "appid", "", "tenant application id")
	cmd.Flags().StringVar(&rankKey, "rank-key", "", "leaderboard rank key")
	_ = cmd.MarkFlagRequired("appid")
	_ = cmd.MarkFlagRequired("rank-key")
	return cmd
}

func doRequest(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call master: %w", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Println(out.String())

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
