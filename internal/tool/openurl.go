package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const openURLDescription = `Open a web page and read its content.
Use this when the user gives you a link or when a search result needs a closer look.
The URL must start with http:// or https://. Long pages are truncated.`

const (
	maxResponseSize = 5 * 1024 * 1024 // 5MB
	fetchTimeout    = 20 * time.Second

	// DefaultPageChars bounds the text handed back to the model.
	DefaultPageChars = 4000

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// OpenURLTool fetches a page and returns it as markdown.
type OpenURLTool struct {
	client   *http.Client
	maxChars int
}

// NewOpenURLTool creates the open_url tool. maxChars <= 0 uses DefaultPageChars.
func NewOpenURLTool(maxChars int) *OpenURLTool {
	if maxChars <= 0 {
		maxChars = DefaultPageChars
	}
	return &OpenURLTool{
		client:   &http.Client{Timeout: fetchTimeout},
		maxChars: maxChars,
	}
}

func (t *OpenURLTool) ID() string               { return "open_url" }
func (t *OpenURLTool) Description() string      { return openURLDescription }
func (t *OpenURLTool) InputDescription() string { return "The full URL to open" }

// Run fetches the URL.
func (t *OpenURLTool) Run(ctx context.Context, input string) (string, error) {
	target := strings.TrimSpace(input)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return fmt.Sprintf("%q is not a web address. URLs must start with http:// or https://.", target), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Sprintf("%q is not a valid URL.", target), nil
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html;q=1.0, application/xhtml+xml;q=0.9, text/plain;q=0.8, */*;q=0.1")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return fmt.Sprintf("I couldn't reach %s.", target), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Sprintf("The page at %s returned HTTP %d.", target, resp.StatusCode), nil
	}
	if resp.ContentLength > maxResponseSize {
		return "That page is too large to read (over 5MB).", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}
	if len(body) > maxResponseSize {
		return "That page is too large to read (over 5MB).", nil
	}

	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		content, err = convertHTMLToMarkdown(content)
		if err != nil {
			// Fall back to plain text when the converter chokes.
			content, err = extractTextFromHTML(string(body))
			if err != nil {
				return "", fmt.Errorf("parse %s: %w", target, err)
			}
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Sprintf("The page at %s has no readable text.", target), nil
	}
	return truncateRunes(content, t.maxChars), nil
}

// truncateRunes cuts s to at most n runes, marking the cut.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n\n[truncated]"
}

// extractTextFromHTML extracts plain text from HTML, dropping scripts, styles
// and embedded objects.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// convertHTMLToMarkdown converts HTML content to Markdown format.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link", "nav", "footer")
	return converter.ConvertString(html)
}
