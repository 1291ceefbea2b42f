package detect

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const (
	contentUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxContentBytes  = 1024 * 1024

	// Below this many bytes the static fetch likely got a JS shell page,
	// which is worth a rendered retry when one is allowed.
	renderRetryThreshold = 512
)

var contentSuspiciousWords = []string{"login", "password", "verify", "account", "suspended", "urgent"}

// ContentExtractor fetches the page and analyzes its markup: forms, inputs,
// link targets, and credential-harvesting vocabulary. Disabled or failed
// fetches degrade to zeroed defaults with has_content=0.
type ContentExtractor struct {
	UseContent bool
	Timeout    time.Duration

	// Render permits a one-shot headless-Chrome retry when the static fetch
	// returns a page too small to analyze. Also gated by SKIP_CHROMEDP for
	// low-resource deployments.
	Render bool

	Logger zerolog.Logger
}

func (ContentExtractor) Name() string { return "content" }

func (e ContentExtractor) Extract(ctx context.Context, t *Target) FeatureRecord {
	if !e.UseContent {
		return e.defaults()
	}

	html, err := e.fetch(ctx, t.Normalized)
	if err != nil {
		e.Logger.Debug().Err(err).Str("url", t.Normalized).Msg("content fetch failed")
		return e.defaults()
	}

	if len(html) < renderRetryThreshold && e.renderAllowed() {
		if rendered, err := e.fetchRendered(ctx, t.Normalized); err == nil && len(rendered) > len(html) {
			html = rendered
		}
	}

	f, err := analyzeContent(html, t)
	if err != nil {
		e.Logger.Debug().Err(err).Str("url", t.Normalized).Msg("content parse failed")
		return e.defaults()
	}
	return f
}

func (e ContentExtractor) FeatureNames() []string {
	return []string{
		"content_length", "has_content", "form_count", "input_count", "has_forms",
		"link_count", "external_link_count", "external_link_ratio", "suspicious_word_count",
	}
}

func (e ContentExtractor) defaults() FeatureRecord {
	return FeatureRecord{
		"content_length":        0,
		"has_content":           0,
		"form_count":            0,
		"input_count":           0,
		"has_forms":             0,
		"link_count":            0,
		"external_link_count":   0,
		"external_link_ratio":   0,
		"suspicious_word_count": 0,
	}
}

func (e ContentExtractor) fetch(ctx context.Context, target string) (string, error) {
	client := &http.Client{
		Timeout: e.timeout(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", contentUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (e ContentExtractor) renderAllowed() bool {
	return e.Render && os.Getenv("SKIP_CHROMEDP") != "true"
}

// fetchRendered loads the page in headless Chrome so JS-built phishing pages
// still expose their forms to the analyzer.
func (e ContentExtractor) fetchRendered(ctx context.Context, target string) (string, error) {
	renderCtx, cancel := context.WithTimeout(ctx, e.timeout()+10*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.UserAgent(contentUserAgent),
	)
	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(renderCtx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

func (e ContentExtractor) timeout() time.Duration {
	if e.Timeout <= 0 {
		return 10 * time.Second
	}
	return e.Timeout
}

func analyzeContent(html string, t *Target) (FeatureRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	f := FeatureRecord{}
	f["content_length"] = float64(len(html))
	f["has_content"] = boolFeature(len(html) > 0)

	forms := doc.Find("form").Length()
	f["form_count"] = float64(forms)
	f["input_count"] = float64(doc.Find("input").Length())
	f["has_forms"] = boolFeature(forms > 0)

	links := 0
	external := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		links++
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsed.Host != "" && !strings.EqualFold(parsed.Host, t.Host) {
			external++
		}
	})
	f["link_count"] = float64(links)
	f["external_link_count"] = float64(external)
	denom := links
	if denom == 0 {
		denom = 1
	}
	f["external_link_ratio"] = float64(external) / float64(denom)

	lower := strings.ToLower(html)
	count := 0
	for _, word := range contentSuspiciousWords {
		count += strings.Count(lower, word)
	}
	f["suspicious_word_count"] = float64(count)

	return f, nil
}
