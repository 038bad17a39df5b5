package evidence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// SiteSummary holds the parts of a company website worth citing as a
// profile source.
type SiteSummary struct {
	Title       string
	Description string
	FinalURL    string
}

// Fetcher retrieves and summarizes company websites, honoring
// robots.txt.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	mu     sync.RWMutex
	robots map[string]*robotstxt.RobotsData
}

// NewFetcher creates a new Fetcher with the given configuration.
func NewFetcher(cfg model.EvidenceConfig) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// FetchSiteSummary retrieves the title and meta description of a page.
func (f *Fetcher) FetchSiteSummary(ctx context.Context, rawURL string) (*SiteSummary, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	if !f.allowed(ctx, rawURL) {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	summary := &SiteSummary{FinalURL: resp.Request.URL.String()}
	walkHTML(doc, summary)
	return summary, nil
}

// allowed checks robots.txt for the URL's host, caching per host. If
// robots.txt cannot be fetched, fetching is allowed by default.
func (f *Fetcher) allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	f.mu.RLock()
	data, exists := f.robots[parsed.Host]
	f.mu.RUnlock()

	if !exists {
		data = f.fetchRobots(ctx, parsed)
		f.mu.Lock()
		f.robots[parsed.Host] = data
		f.mu.Unlock()
	}
	if data == nil {
		return true
	}
	return data.TestAgent(parsed.Path, f.userAgent)
}

func (f *Fetcher) fetchRobots(ctx context.Context, page *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", page.Scheme, page.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		data, _ := robotstxt.FromStatusAndBytes(404, nil)
		return data
	}
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

func walkHTML(n *html.Node, summary *SiteSummary) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if summary.Title == "" && n.FirstChild != nil {
				summary.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			var name, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "name", "property":
					name = strings.ToLower(attr.Val)
				case "content":
					content = attr.Val
				}
			}
			if summary.Description == "" && (name == "description" || name == "og:description") {
				summary.Description = strings.TrimSpace(content)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkHTML(child, summary)
	}
}
