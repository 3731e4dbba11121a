package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/ropdawg/astral/internal"
)

const (
	defaultWikiAPI       = "https://en.wikipedia.org/w/api.php"
	defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	defaultBingURL       = "https://api.bing.microsoft.com/v7.0/search"
	defaultProbeURL      = "https://www.wikipedia.org"

	userAgent = "Mozilla/5.0"

	// searchCacheSize bounds the general search cache
	searchCacheSize = 128
	// maxQueryLen is how much of a message is sent as a search query
	maxQueryLen = 800
	// maxSnippetLen caps a search result's text
	maxSnippetLen = 1600
	// maxExcerptLen caps a finding's text in the prompt
	maxExcerptLen = 800
)

// Finding is one web search result
type Finding struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

var (
	webTriggers = []string{
		"latest", "recent", "current", "news", "update", "updates", "version", "versions",
		"released", "release", "announced", "trend", "trending", "today",
	}
	techTriggers = []string{
		"install", "how to install", "compatibl", "compatibility", "npm", "pypi",
		"github", "stack overflow", "stackoverflow",
	}
	yearPattern = regexp.MustCompile(`20\d{2}`)
)

// ShouldUseWeb guesses whether text asks about something that needs fresh
// information from the web
func ShouldUseWeb(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range webTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	if yearPattern.MatchString(text) {
		return true
	}
	for _, t := range techTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// WebSearcher gathers findings for the chat prompt
type WebSearcher interface {
	Available(ctx context.Context) bool
	Findings(ctx context.Context, query string) ([]Finding, error)
}

// Searcher queries Wikipedia, DuckDuckGo and optionally Bing
type Searcher struct {
	HTTPClient    *http.Client
	WikiAPI       string
	DuckDuckGoURL string
	BingURL       string
	BingKey       string
	ProbeURL      string

	cache *searchCache
}

// NewSearcher creates a searcher against the public endpoints.
// Bing is only consulted when bingKey is set.
func NewSearcher(bingKey string) *Searcher {
	return &Searcher{
		HTTPClient:    &http.Client{Timeout: 12 * time.Second},
		WikiAPI:       defaultWikiAPI,
		DuckDuckGoURL: defaultDuckDuckGoURL,
		BingURL:       defaultBingURL,
		BingKey:       bingKey,
		ProbeURL:      defaultProbeURL,
		cache:         newSearchCache(searchCacheSize),
	}
}

// Available probes the internet with a short request
func (s *Searcher) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := s.get(ctx, s.ProbeURL, nil)
	if err != nil {
		internal.LogDebug("Internet probe failed: %v", err)
		return false
	}
	resp.Body.Close()
	return true
}

// Findings runs the Wikipedia and general searches concurrently and
// merges them by URL, Wikipedia first
func (s *Searcher) Findings(ctx context.Context, query string) ([]Finding, error) {
	query = truncateRunes(query, maxQueryLen)

	var wiki, general []Finding
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wiki = s.WikiSearch(gctx, query, 2)
		return nil
	})
	g.Go(func() error {
		general = s.GeneralSearch(gctx, query, 4)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return mergeFindings(nil, append(wiki, general...), 0), nil
}

// mergeFindings appends the findings in extra whose URL is not yet in base.
// A positive limit stops once base holds limit findings.
func mergeFindings(base, extra []Finding, limit int) []Finding {
	seen := make(map[string]bool, len(base)+len(extra))
	for _, f := range base {
		seen[f.URL] = true
	}
	for _, f := range extra {
		if limit > 0 && len(base) >= limit {
			break
		}
		if seen[f.URL] {
			continue
		}
		seen[f.URL] = true
		base = append(base, f)
	}
	return base
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// WikiSearch searches Wikipedia and returns a plain-text extract per page.
// Failures yield whatever was gathered so far.
func (s *Searcher) WikiSearch(ctx context.Context, query string, maxResults int) []Finding {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"format":   {"json"},
		"srlimit":  {strconv.Itoa(maxResults)},
	}
	var found wikiSearchResponse
	if err := s.getJSON(ctx, s.WikiAPI+"?"+params.Encode(), nil, &found); err != nil {
		internal.LogDebug("Wikipedia search failed: %v", err)
		return nil
	}

	out := make([]Finding, 0, len(found.Query.Search))
	for _, item := range found.Query.Search {
		extract := s.wikiExtract(ctx, item.PageID)
		if extract == "" {
			extract = htmlText(item.Snippet)
		}
		out = append(out, Finding{
			URL:  fmt.Sprintf("https://en.wikipedia.org/?curid=%d", item.PageID),
			Text: extract,
		})
	}
	return out
}

func (s *Searcher) wikiExtract(ctx context.Context, pageID int) string {
	id := strconv.Itoa(pageID)
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"format":      {"json"},
		"pageids":     {id},
		"exchars":     {"2000"},
	}
	var ex wikiExtractResponse
	if err := s.getJSON(ctx, s.WikiAPI+"?"+params.Encode(), nil, &ex); err != nil {
		internal.LogDebug("Wikipedia extract %s failed: %v", id, err)
		return ""
	}
	return ex.Query.Pages[id].Extract
}

// DuckDuckGoSearch scrapes the DuckDuckGo HTML endpoint
func (s *Searcher) DuckDuckGoSearch(ctx context.Context, query string, maxResults int) []Finding {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.DuckDuckGoURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		internal.LogDebug("DuckDuckGo search failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		internal.LogDebug("DuckDuckGo parse failed: %v", err)
		return nil
	}
	return parseDuckDuckGo(doc, maxResults)
}

// parseDuckDuckGo pulls result links and their snippets out of a results page
func parseDuckDuckGo(doc *html.Node, maxResults int) []Finding {
	anchors := findAll(doc, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, "result__a")
	})
	if len(anchors) == 0 {
		anchors = findAll(doc, func(n *html.Node) bool { return n.Data == "a" })
	}

	var out []Finding
	for _, a := range anchors {
		href := attr(a, "href")
		if !strings.HasPrefix(href, "http") {
			continue
		}
		text := strings.TrimSpace(nodeText(a))

		snippet := ""
		if parent := a.Parent; parent != nil {
			nodes := findAll(parent, func(n *html.Node) bool {
				return (n.Data == "a" || n.Data == "div") && hasClass(n, "result__snippet")
			})
			if len(nodes) > 0 {
				snippet = strings.TrimSpace(nodeText(nodes[0]))
			}
		}
		if snippet == "" {
			snippet = text
		}
		out = append(out, Finding{URL: href, Text: truncateRunes(snippet, maxSnippetLen)})
		if len(out) >= maxResults {
			break
		}
	}
	return out
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// BingSearch uses the Bing Web Search API. It returns nothing without a key.
func (s *Searcher) BingSearch(ctx context.Context, query string, maxResults int) []Finding {
	if s.BingKey == "" {
		return nil
	}
	params := url.Values{"q": {query}, "count": {strconv.Itoa(maxResults)}}
	header := http.Header{"Ocp-Apim-Subscription-Key": {s.BingKey}}

	var data bingResponse
	if err := s.getJSON(ctx, s.BingURL+"?"+params.Encode(), header, &data); err != nil {
		internal.LogDebug("Bing search failed: %v", err)
		return nil
	}
	out := make([]Finding, 0, len(data.WebPages.Value))
	for _, v := range data.WebPages.Value {
		out = append(out, Finding{URL: v.URL, Text: truncateRunes(v.Snippet, maxSnippetLen)})
	}
	return out
}

// GeneralSearch prefers Bing, falls back to DuckDuckGo, then tops the
// results up with Wikipedia. Results are cached per query and size.
func (s *Searcher) GeneralSearch(ctx context.Context, query string, maxResults int) []Finding {
	key := fmt.Sprintf("gs:%s:%d", strings.ToLower(strings.TrimSpace(query)), maxResults)
	if cached, ok := s.cache.get(key); ok {
		return cached
	}

	var results []Finding
	if s.BingKey != "" {
		results = s.BingSearch(ctx, query, maxResults)
	}
	if len(results) == 0 {
		results = s.DuckDuckGoSearch(ctx, query, maxResults)
	}
	results = mergeFindings(results, s.WikiSearch(ctx, query, 2), maxResults)

	if ctx.Err() == nil {
		s.cache.put(key, results)
	}
	return results
}

func (s *Searcher) get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", userAgent)
	return s.HTTPClient.Do(req)
}

func (s *Searcher) getJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	resp, err := s.get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &internal.EndpointError{URL: rawURL, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &internal.ParseError{Source: "search", Key: rawURL, Err: err}
	}
	return nil
}

// searchCache is a fixed-size cache that evicts the oldest entry
type searchCache struct {
	mu    sync.Mutex
	size  int
	order []string
	data  map[string][]Finding
}

func newSearchCache(size int) *searchCache {
	return &searchCache{size: size, data: make(map[string][]Finding)}
}

func (c *searchCache) get(key string) ([]Finding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *searchCache) put(key string, v []Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		c.order = append(c.order, key)
	}
	c.data[key] = v
	for len(c.order) > c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.data, oldest)
	}
}

func (c *searchCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// htmlText strips markup from a fragment such as a search snippet
func htmlText(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fragment
	}
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(nodeText(n))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FormatFindings renders findings as the prompt's web section
func FormatFindings(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}
	parts := []string{"Web findings:"}
	for _, f := range findings {
		parts = append(parts, "- Source: "+f.URL+"\n  Excerpt: "+truncateRunes(f.Text, maxExcerptLen))
	}
	return "\n" + strings.Join(parts, "\n\n") + "\n\n"
}
