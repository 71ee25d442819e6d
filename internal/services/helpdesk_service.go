package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"
	cache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

const helpdeskUserAgent = "PulseboardAssistant/1.0"

const maxArticleChars = 8000

// HelpArticle is one entry in the keyword-indexed documentation catalog.
type HelpArticle struct {
	Title    string
	Path     string
	Keywords []string
}

// helpArticles is the documentation catalog the helpdesk matches against.
// Best keyword overlap wins; ties go to the earlier entry.
var helpArticles = []HelpArticle{
	{"Creating and sending a survey", "/articles/creating-surveys", []string{"create", "send", "survey", "new", "launch", "invite"}},
	{"Understanding your NPS score", "/articles/understanding-nps", []string{"nps", "score", "promoter", "detractor", "passive", "calculate"}},
	{"Managing survey cycles", "/articles/survey-cycles", []string{"cycle", "sequence", "schedule", "wave", "recurring"}},
	{"Importing parents and students", "/articles/importing-rosters", []string{"import", "roster", "upload", "csv", "parents", "students", "sync"}},
	{"User roles and permissions", "/articles/roles-permissions", []string{"role", "permission", "admin", "access", "invite", "user"}},
	{"Account and notification settings", "/articles/account-settings", []string{"settings", "configuration", "notification", "email", "password", "account"}},
	{"Exporting reports", "/articles/exporting-reports", []string{"export", "report", "download", "pdf", "excel"}},
	{"Anonymous responses explained", "/articles/anonymous-responses", []string{"anonymous", "identity", "privacy", "who"}},
}

// HelpdeskService resolves how-to questions against the documentation
// site: keyword lookup for the best article, a robots-compliant fetch of
// its body, then a grounded summary.
type HelpdeskService struct {
	baseURL    string
	summarizer *SummarizerService
	client     *http.Client
	robots     *cache.Cache // robots.txt per host, cached for 24h
}

// NewHelpdeskService creates a new helpdesk service
func NewHelpdeskService(baseURL string, summarizer *SummarizerService) *HelpdeskService {
	return &HelpdeskService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		summarizer: summarizer,
		client:     &http.Client{Timeout: 15 * time.Second},
		robots:     cache.New(24*time.Hour, 1*time.Hour),
	}
}

// Answer resolves a how-to question. A fetch failure degrades to linking
// the article; no match degrades to a generic pointer at the help site.
func (s *HelpdeskService) Answer(ctx context.Context, message string) string {
	article, found := s.BestMatch(message)
	if !found {
		return fmt.Sprintf("I couldn't find a help article for that. Browse the help center at %s", s.baseURL)
	}

	articleURL := s.baseURL + article.Path
	body, err := s.FetchBody(ctx, articleURL)
	if err != nil {
		body = ""
	}

	return s.summarizer.SummarizeHelpdesk(ctx, message, article.Title, articleURL, body)
}

// BestMatch returns the catalog article with the highest keyword overlap.
func (s *HelpdeskService) BestMatch(message string) (*HelpArticle, bool) {
	lowered := strings.ToLower(message)

	best := -1
	bestScore := 0
	for i, article := range helpArticles {
		score := 0
		for _, keyword := range article.Keywords {
			if strings.Contains(lowered, keyword) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 {
		return nil, false
	}
	return &helpArticles[best], true
}

// FetchBody fetches an article page and extracts its readable text.
func (s *HelpdeskService) FetchBody(ctx context.Context, articleURL string) (string, error) {
	allowed, err := s.canFetch(ctx, articleURL)
	if err == nil && !allowed {
		return "", fmt.Errorf("robots.txt disallows fetching %s", articleURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", helpdeskUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read article: %w", err)
	}

	parsedURL, _ := url.Parse(articleURL)
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{OriginalURL: parsedURL})
	if err != nil {
		return "", fmt.Errorf("failed to extract article text: %w", err)
	}
	if result == nil || result.ContentText == "" {
		return "", fmt.Errorf("no content extracted from %s", articleURL)
	}

	content := result.ContentText
	if len(content) > maxArticleChars {
		content = content[:maxArticleChars]
	}
	return content, nil
}

// canFetch checks robots.txt for the article host, caching the parsed
// rules for 24 hours.
func (s *HelpdeskService) canFetch(ctx context.Context, rawURL string) (bool, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}

	host := parsedURL.Scheme + "://" + parsedURL.Host
	if cached, found := s.robots.Get(host); found {
		data := cached.(*robotstxt.RobotsData)
		return data.FindGroup(helpdeskUserAgent).Test(parsedURL.Path), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", host+"/robots.txt", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", helpdeskUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return true, nil // unreachable robots.txt does not block our own docs site
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return true, nil
	}

	s.robots.Set(host, data, cache.DefaultExpiration)
	return data.FindGroup(helpdeskUserAgent).Test(parsedURL.Path), nil
}
