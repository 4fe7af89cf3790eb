// Package web extracts text documents from web pages. The main content is
// pulled with readability; pages too thin for it fall back to a plain
// paragraph walk over the HTML.
package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
	"github.com/chenraccah/semantic-network-analyzer/pkg/loader/doc"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"
)

// WebColumnLoader fetches a URL and extracts its readable paragraphs.
type WebColumnLoader struct {
	client *http.Client

	cache   map[string][]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewWebColumnLoader creates a new web loader using the default HTTP client.
func NewWebColumnLoader() *WebColumnLoader {
	return &WebColumnLoader{
		client: http.DefaultClient,
		cache:  make(map[string][]string),
	}
}

// NewWebColumnLoaderWithClient creates a web loader with a custom HTTP
// client, for timeouts or proxies.
func NewWebColumnLoaderWithClient(client *http.Client) *WebColumnLoader {
	return &WebColumnLoader{
		client: client,
		cache:  make(map[string][]string),
	}
}

// GetDocuments fetches the source URL and returns one document per readable
// paragraph. Results are cached per source.
func (l *WebColumnLoader) GetDocuments(ctx context.Context, src loader.TextSource) ([]string, error) {
	key := loader.CacheKey(src)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
		}

		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(contentType, "text/html") {
			return nil, fmt.Errorf("unsupported content type: %s", contentType)
		}

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		docs := l.extract(buf.Bytes(), src.Path)
		if len(docs) == 0 {
			return nil, fmt.Errorf("no readable text found at %s", src.Path)
		}

		l.cacheMu.Lock()
		l.cache[key] = docs
		l.cacheMu.Unlock()

		return docs, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}

func (l *WebColumnLoader) extract(page []byte, pageURL string) []string {
	if u, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(page), u); err == nil {
			var builder strings.Builder
			if err := article.RenderText(&builder); err == nil {
				if docs := doc.SplitParagraphs(builder.String()); len(docs) > 0 {
					return docs
				}
			}
		}
	}
	return fallbackParagraphs(page)
}

// fallbackParagraphs walks the raw HTML and collects the text of <p>
// elements, for pages whose structure defeats readability.
func fallbackParagraphs(page []byte) []string {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var docs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				docs = append(docs, strings.Join(strings.Fields(text), " "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return docs
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
		sb.WriteByte(' ')
	}
	return sb.String()
}
