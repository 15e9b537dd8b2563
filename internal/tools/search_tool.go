package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mimilabs/mimi/internal/cache"
)

// --- Web Search Tool ---

const (
	searchEndpoint   = "https://html.duckduckgo.com/html/"
	maxSearchResults = 5
	searchUserAgent  = "Mozilla/5.0 (compatible; mimi-assistant/1.0)"
)

// SearchTool answers real-time questions (news, sports, stocks) by querying
// DuckDuckGo's HTML endpoint and formatting the top results for the model.
// Results are cached briefly in Redis since identical queries often repeat
// within a conversation.
type SearchTool struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.SearchCache
}

var _ ToolExecutor = (*SearchTool)(nil)

// NewSearchTool creates a search tool. The cache may be nil, in which case
// every query goes to the network.
func NewSearchTool(searchCache *cache.SearchCache) *SearchTool {
	return &SearchTool{
		endpoint: searchEndpoint,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		cache: searchCache,
	}
}

func (st *SearchTool) Definition() Tool {
	return NewFunctionTool(
		"search_web",
		"Search the web for real-time information such as news, sports results, stock prices, or facts the assistant does not know.",
		JSONSchema{
			Type: "object",
			Properties: map[string]*JSONSchema{
				"query": {
					Type:        "string",
					Description: "The search query, e.g. 'latest Lakers score' or 'NVDA stock price today'.",
				},
			},
			Required: []string{"query"},
		},
	)
}

// Execute runs the search and returns up to five results as Title/URL/Snippet
// blocks, the shape models digest best.
func (st *SearchTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for search tool: %w", err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return "Error: search query cannot be empty.", nil
	}

	if cached, found := st.cache.Get(ctx, query); found {
		return cached, nil
	}

	results, err := st.fetchResults(ctx, query)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s", r.Title, r.URL, r.Snippet))
	}
	formatted := strings.Join(blocks, "\n\n")

	st.cache.Set(ctx, query, formatted)
	return formatted, nil
}

// searchResult is one parsed entry from the results page.
type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

// fetchResults posts the query to the HTML endpoint and parses the result
// list out of the returned markup.
func (st *SearchTool) fetchResults(ctx context.Context, query string) ([]searchResult, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, st.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := st.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned non-200 status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return parseSearchResults(body, maxSearchResults)
}

// parseSearchResults extracts result blocks from the DuckDuckGo HTML page.
// Each result lives under a div with class "result"; the title anchor carries
// class "result__a" and the snippet carries class "result__snippet".
func parseSearchResults(body []byte, max int) ([]searchResult, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search response HTML: %w", err)
	}

	var results []searchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if r, ok := extractResult(n); ok {
				results = append(results, r)
			}
			// Results never nest, no need to descend further.
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results, nil
}

// extractResult pulls the title, link, and snippet out of one result div.
func extractResult(div *html.Node) (searchResult, bool) {
	var r searchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a") && r.Title == "":
				r.Title = strings.TrimSpace(textContent(n))
				r.URL = resolveResultURL(attr(n, "href"))
			case hasClass(n, "result__snippet") && r.Snippet == "":
				r.Snippet = strings.TrimSpace(textContent(n))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(div)
	return r, r.Title != "" && r.URL != ""
}

// resolveResultURL unwraps DuckDuckGo's redirect links (/l/?uddg=<encoded>)
// back to the destination URL.
func resolveResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(parsed.Host, "duckduckgo.com") && strings.HasPrefix(parsed.Path, "/l/") {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
