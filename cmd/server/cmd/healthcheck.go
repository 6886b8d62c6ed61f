package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the payload served by GET /health.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResult is one probe of a running server.
type HealthCheckResult struct {
	URL       string `json:"url"`
	Status    string `json:"status,omitempty"`
	IsHealthy bool   `json:"healthy"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type healthcheckOptions struct {
	url     string
	timeout time.Duration
	format  string
}

func newHealthcheckCommand() *cobra.Command {
	opts := &healthcheckOptions{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by container HEALTHCHECK probes. It exits non-zero
unless the server reports "healthy" or "degraded". A degraded server is
still serving: only the shared rate limit store is unavailable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := opts.url
			if url == "" {
				url = defaultHealthURL()
			}
			result := performHealthCheck(commandContext(cmd), url, opts.timeout)
			if err := printHealthResult(cmd.OutOrStdout(), result, opts.format); err != nil {
				return err
			}
			if !result.IsHealthy {
				if result.Error != "" {
					return fmt.Errorf("health check failed: %s", result.Error)
				}
				return fmt.Errorf("unhealthy: status=%s", result.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text, json)")
	return cmd
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

func performHealthCheck(ctx context.Context, url string, timeout time.Duration) HealthCheckResult {
	result := HealthCheckResult{URL: url}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		return result
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		result.Error = fmt.Sprintf("parse response (status %d): %v", resp.StatusCode, err)
		return result
	}
	result.Status = health.Status
	result.IsHealthy = resp.StatusCode == http.StatusOK &&
		(health.Status == "healthy" || health.Status == "degraded")
	return result
}

func printHealthResult(out io.Writer, result HealthCheckResult, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(out).Encode(result)
	case "text", "":
		if result.Error != "" {
			_, err := fmt.Fprintf(out, "%s: error (%s) %dms\n", result.URL, result.Error, result.LatencyMs)
			return err
		}
		_, err := fmt.Fprintf(out, "%s: %s %dms\n", result.URL, result.Status, result.LatencyMs)
		return err
	default:
		return fmt.Errorf("unsupported format %q (text, json)", format)
	}
}
