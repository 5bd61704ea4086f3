// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivPDFBase is the fallback document location when an entry carries no
// PDF link.
var arxivPDFBase = "https://arxiv.org/pdf/"

// ErrNotFound reports an identifier lookup that returned no entry.
var ErrNotFound = errors.New("paper not found")

// ArxivClient queries the arXiv Atom API. Calls are spaced by Limiter; arXiv
// asks clients to wait three seconds between requests.
type ArxivClient struct {
	Client    *http.Client
	UserAgent string
	Limiter   *rate.Limiter
	Log       zerolog.Logger
}

// NewArxivClient builds a client from the shared HTTP settings.
func NewArxivClient(cfg types.HTTPConfig, log zerolog.Logger) *ArxivClient {
	var limiter *rate.Limiter
	if cfg.SearchInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.SearchInterval), 1)
	}
	return &ArxivClient{
		Client:    &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
		Limiter:   limiter,
		Log:       log,
	}
}

// Search returns up to maxResults papers matching the boolean query, newest
// submissions first.
func (c *ArxivClient) Search(ctx context.Context, query string, maxResults int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if maxResults <= 0 {
		maxResults = 1
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	papers, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	c.Log.Info().Str("query", query).Int("results", len(papers)).Msg("arXiv search done")
	return papers, nil
}

// Lookup returns the single paper with the given identifier.
func (c *ArxivClient) Lookup(ctx context.Context, id string) (types.Paper, error) {
	params := url.Values{}
	params.Set("id_list", id)
	params.Set("max_results", "1")

	papers, err := c.fetch(ctx, params)
	if err != nil {
		return types.Paper{}, err
	}
	if len(papers) == 0 {
		return types.Paper{}, fmt.Errorf("%w: arXiv ID %s", ErrNotFound, id)
	}
	return papers[0], nil
}

func (c *ArxivClient) fetch(ctx context.Context, params url.Values) ([]types.Paper, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0, c.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: arXiv API request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: arXiv API returned HTTP %d: %s", types.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parsing arXiv response: %v", types.ErrTransport, err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if strings.Contains(entry.ID, "/api/errors") {
			return nil, fmt.Errorf("%w: arXiv rejected query: %s", types.ErrConfig, strings.TrimSpace(entry.Summary))
		}
		id := shortID(entry.ID)
		if id == "" {
			continue
		}
		papers = append(papers, entry.paper(id))
	}
	return papers, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string        `xml:"id"`
	Title           string        `xml:"title"`
	Summary         string        `xml:"summary"`
	Published       string        `xml:"published"`
	Authors         []arxivAuthor `xml:"author"`
	Links           []arxivLink   `xml:"link"`
	PrimaryCategory arxivCategory `xml:"http://arxiv.org/schemas/atom primary_category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func (e arxivEntry) paper(id string) types.Paper {
	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, strings.TrimSpace(a.Name))
	}

	p := types.Paper{
		ID:              id,
		Title:           strings.Join(strings.Fields(e.Title), " "),
		EntryURL:        strings.TrimSpace(e.ID),
		Authors:         strings.Join(authors, ", "),
		PrimaryCategory: e.PrimaryCategory.Term,
		Abstract:        singleLine(e.Summary),
		PDFURL:          arxivPDFBase + id,
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.Published = t.UTC().Format(types.DateLayout)
	}
	return p
}

// singleLine replaces embedded newlines with spaces and trims the ends.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// shortID pulls the versioned arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1").
func shortID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(idURL[idx+len(prefix):])
}
