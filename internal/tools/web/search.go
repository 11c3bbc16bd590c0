// Package web provides the search_internet tool.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"aide/internal/logging"
	"aide/internal/tools"
)

// Search backends speak a SERP-style JSON API. The default endpoint and key
// come from the environment so the tool stays provider-agnostic.
const (
	defaultEndpoint = "https://serpapi.com/search"
	endpointEnv     = "SEARCH_API_ENDPOINT"
	apiKeyEnv       = "SEARCH_API_KEY"
)

// searchHit is the subset of a SERP result surfaced to the model.
type searchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	OrganicResults []searchHit `json:"organic_results"`
	Error          string      `json:"error"`
}

// SearchInternetTool returns the search_internet tool.
func SearchInternetTool() *tools.Tool {
	client := &http.Client{Timeout: 30 * time.Second}

	return &tools.Tool{
		Name:        "search_internet",
		Description: "Search the internet and return titles, links, and snippets. Use page to fetch further result pages.",
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query":       {Type: "string", Description: "Search query"},
				"page":        {Type: "integer", Description: "Result page, starting at 1", Default: 1},
				"safe_search": {Type: "string", Description: "Safe-search level", Default: "moderate", Enum: []any{"off", "moderate", "strict"}},
				"language":    {Type: "string", Description: "Result language code, e.g. 'en'"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query := tools.StringArg(args, "query")
			page := tools.IntArg(args, "page", 1)
			if page < 1 {
				page = 1
			}

			apiKey := os.Getenv(apiKeyEnv)
			if apiKey == "" {
				return "", fmt.Errorf("internet search is not configured: set %s", apiKeyEnv)
			}
			endpoint := os.Getenv(endpointEnv)
			if endpoint == "" {
				endpoint = defaultEndpoint
			}

			params := url.Values{}
			params.Set("q", query)
			params.Set("api_key", apiKey)
			params.Set("start", strconv.Itoa((page-1)*10))
			params.Set("safe", tools.StringArg(args, "safe_search"))
			if lang := tools.StringArg(args, "language"); lang != "" {
				params.Set("hl", lang)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
			if err != nil {
				return "", fmt.Errorf("failed to build search request: %w", err)
			}

			logging.ToolsDebug("search_internet query=%q page=%d", query, page)
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("search request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				return "", fmt.Errorf("failed to read search response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("search provider returned %s", resp.Status)
			}

			var parsed searchResponse
			if err := json.Unmarshal(body, &parsed); err != nil {
				return "", fmt.Errorf("failed to parse search response: %w", err)
			}
			if parsed.Error != "" {
				return "", fmt.Errorf("search provider error: %s", parsed.Error)
			}
			if len(parsed.OrganicResults) == 0 {
				return fmt.Sprintf("No results for %q", query), nil
			}

			var b strings.Builder
			for i, hit := range parsed.OrganicResults {
				fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, hit.Title, hit.Link)
				if hit.Snippet != "" {
					fmt.Fprintf(&b, "   %s\n", hit.Snippet)
				}
			}
			return b.String(), nil
		},
	}
}

// RegisterAll adds the web tools to the registry.
func RegisterAll(r *tools.Registry) {
	r.MustRegister(SearchInternetTool())
}
