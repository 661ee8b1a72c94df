package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/msandoval/flasharb/pkg/config"
	"github.com/msandoval/flasharb/pkg/httpserver"
)

// defaultServerURL resolves the running bot's base URL from the same
// environment the run command reads, so the operator commands find it
// without extra flags.
func defaultServerURL() string {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return "http://localhost:8080"
	}

	return "http://localhost:" + cfg.HTTPPort
}

// postJSON posts body to the bot's control API and decodes the response
// into out. Non-2xx responses surface the server's error message.
func postJSON(baseURL, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr httpserver.ErrorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, string(payload))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// printJSON renders v as indented JSON to stdout.
func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("format output: %w", err)
	}

	fmt.Println(string(encoded))
	return nil
}
