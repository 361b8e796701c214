// Package jazzstandards implements the editorial jazz-standards adapter:
// the paginated top-1000 index, and a per-song scrape for
// composer, year, description, and recommended recordings. The site is
// HTML, not JSON, so this adapter parses with goquery rather than
// encoding/json.
package jazzstandards

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
)

const defaultBaseURL = "https://www.jazzstandards.com"

// ProviderName is the cache/config key for this provider.
const ProviderName = "jazzstandards"

// IndexPages is the number of paginated index pages the top-1000 listing
// spans.
const IndexPages = 10

// Adapter is the editorial jazz-standards provider adapter.
type Adapter struct {
	http    *httpclient.Client
	cache   cache.Store
	baseURL string
}

// New creates an Adapter against the default base URL.
func New(client *httpclient.Client, store cache.Store) *Adapter {
	return NewWithBaseURL(client, store, defaultBaseURL)
}

// NewWithBaseURL creates an Adapter against a custom base URL, for tests.
func NewWithBaseURL(client *httpclient.Client, store cache.Store, baseURL string) *Adapter {
	return &Adapter{http: client, cache: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// ListAll fetches all 10 index pages and returns the combined song list.
func (a *Adapter) ListAll(ctx context.Context) ([]model.IndexEntry, error) {
	var all []model.IndexEntry
	for page := 1; page <= IndexPages; page++ {
		entries, err := a.indexPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetching index page %d: %w", page, err)
		}
		all = append(all, entries...)
	}
	return all, nil
}

func (a *Adapter) indexPage(ctx context.Context, page int) ([]model.IndexEntry, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "searches", ID: "index-" + strconv.Itoa(page)}

	doc, err := a.getDocument(ctx, key, func() string {
		return fmt.Sprintf("%s/songs-%d.htm", a.baseURL, page)
	})
	if err != nil {
		return nil, err
	}

	var entries []model.IndexEntry
	doc.Find("a.song-title, td.song-list a").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		if title == "" || !ok {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = a.baseURL + "/" + strings.TrimPrefix(href, "/")
		}
		entries = append(entries, model.IndexEntry{Title: title, URL: href})
	})
	return entries, nil
}

var yearPattern = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)
var recordingLine = regexp.MustCompile(`^(.+?)[,\-–]\s*(.+?)(?:\s*\((\d{4})\))?$`)

// SongPage scrapes a per-song page for composer, year, description, and
// recommended recordings. Recommended recordings are found by the
// section-header heuristic first; the bold-element scan only runs when
// the header heuristic yields zero results.
func (a *Adapter) SongPage(ctx context.Context, pageURL string) (*model.SongPage, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "songs", ID: pageURL}

	doc, err := a.getDocument(ctx, key, func() string { return pageURL })
	if err != nil {
		return nil, err
	}

	page := &model.SongPage{
		Composer:    firstNonEmpty(doc.Find(".composer").First().Text(), labeledField(doc, "Composer")),
		Description: strings.TrimSpace(doc.Find(".entry-content p").First().Text()),
	}
	if y := labeledField(doc, "Year"); y != "" {
		if n, err := strconv.Atoi(yearPattern.FindString(y)); err == nil {
			page.Year = n
		}
	}

	page.RecommendedRecordings = recordingsBySectionHeader(doc)
	if len(page.RecommendedRecordings) == 0 {
		page.RecommendedRecordings = recordingsByBoldScan(doc)
	}
	return page, nil
}

// recordingsBySectionHeader finds a heading whose text mentions
// "Recommended Recordings" and parses the list that follows it.
func recordingsBySectionHeader(doc *goquery.Document) []model.RecommendedRecording {
	var recs []model.RecommendedRecording
	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(heading.Text()), "recommended record") {
			return true
		}
		list := heading.NextFiltered("ul, ol")
		if list.Length() == 0 {
			list = heading.Parent().Find("ul, ol").First()
		}
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			if rec, ok := parseRecordingLine(li.Text()); ok {
				recs = append(recs, rec)
			}
		})
		return false
	})
	return recs
}

// recordingsByBoldScan is the fallback heuristic: scan bold elements in
// the body for lines that look like "Artist - Album (Year)".
func recordingsByBoldScan(doc *goquery.Document) []model.RecommendedRecording {
	var recs []model.RecommendedRecording
	doc.Find("b, strong").Each(func(_ int, bold *goquery.Selection) {
		if rec, ok := parseRecordingLine(bold.Text()); ok {
			recs = append(recs, rec)
		}
	})
	return recs
}

func parseRecordingLine(text string) (model.RecommendedRecording, bool) {
	text = strings.TrimSpace(text)
	m := recordingLine.FindStringSubmatch(text)
	if m == nil {
		return model.RecommendedRecording{}, false
	}
	rec := model.RecommendedRecording{Artist: strings.TrimSpace(m[1]), Album: strings.TrimSpace(m[2])}
	if m[3] != "" {
		if y, err := strconv.Atoi(m[3]); err == nil {
			rec.Year = y
		}
	}
	if rec.Artist == "" || rec.Album == "" {
		return model.RecommendedRecording{}, false
	}
	return rec, true
}

func labeledField(doc *goquery.Document, label string) string {
	var value string
	doc.Find("dt, th, b, strong").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimSuffix(sel.Text(), ":")), label) {
			return true
		}
		value = strings.TrimSpace(sel.Next().Text())
		return false
	})
	return value
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// getDocument serves an HTML page through the cache, parsing it with
// goquery on both cache hits and fresh fetches.
func (a *Adapter) getDocument(ctx context.Context, key cache.Key, urlFn func() string) (*goquery.Document, error) {
	entry, outcome, err := a.cache.Load(ctx, key, cache.TTLWebPage)
	if err != nil {
		return nil, err
	}
	if outcome == cache.Hit {
		return goquery.NewDocumentFromReader(strings.NewReader(string(entry.Data)))
	}
	if outcome == cache.NegativeHit {
		return nil, &httpclient.ProviderNotFound{Provider: ProviderName, Key: key.ID}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlFn(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "jazzref/1.0 (+https://github.com/dprodger/jazzref)")

	body, status, err := a.http.Do(ctx, req)
	var notFound *httpclient.ProviderNotFound
	if errors.As(err, &notFound) {
		status, err = http.StatusNotFound, nil
	}
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		_ = a.cache.Store(ctx, key, []byte("null"), true)
		return nil, &httpclient.ProviderNotFound{Provider: ProviderName, Key: key.ID}
	}

	_ = a.cache.Store(ctx, key, body, false)
	return goquery.NewDocumentFromReader(strings.NewReader(string(body)))
}
