// Package verify implements the reference verifier: given an external
// page claimed to describe an entity already in the store, it fetches
// the page, extracts its heading and early list text, and scores how
// likely the page really is about that entity.
package verify

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Confidence is a coarse bucket over Result.Score.
type Confidence string

// Known confidence buckets.
const (
	ConfidenceVeryLow Confidence = "very_low"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceCertain Confidence = "certain"
)

// ValidThreshold is the minimum score for Result.Valid to be true.
const ValidThreshold = 50

// Context carries the entity-side signals the verifier checks the page
// against.
type Context struct {
	EntityName   string
	BirthYear    int // 0 if unknown
	DeathYear    int // 0 if unknown
	SampleTitles []string
}

// Result is the verifier's verdict.
type Result struct {
	Valid      bool
	Confidence Confidence
	Reason     string
	Score      int
}

// specificKeywords count heavily: unambiguous musician/jazz vocabulary.
var specificKeywords = compileKeywords(
	"jazz", "saxophonist", "pianist", "trumpeter", "drummer", "bassist",
	"guitarist", "vocalist", "composer", "bandleader", "vibraphonist",
	"clarinetist", "trombonist", "conductor", "discography",
)

// genericKeywords count lightly: music-adjacent but not diagnostic.
var genericKeywords = compileKeywords(
	"music", "song", "performance", "album", "band", "recording",
)

type keyword struct {
	text string
	re   *regexp.Regexp
}

func compileKeywords(words ...string) []keyword {
	out := make([]keyword, len(words))
	for i, w := range words {
		out[i] = keyword{text: w, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)}
	}
	return out
}

// nonMusicianProfessions is a closed set of disambiguating parentheticals
// that indicate the page is about a different person entirely.
var nonMusicianProfessions = []string{
	"basketball", "football", "baseball", "politician", "actor", "actress",
	"footballer", "boxer", "wrestler", "author", "scientist", "engineer",
}

var disambiguationHeading = regexp.MustCompile(`(?i)\(disambiguation\)\s*$`)
var mayReferTo = regexp.MustCompile(`(?i)^.+\s+may refer to:?\s*$`)
var yearParen = regexp.MustCompile(`\(\d{4}`)

// Verify fetches url with client and scores it against ctx.
func Verify(ctx context.Context, client *http.Client, pageURL string, vctx Context) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", "jazzref-verifier/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return Result{}, err
	}

	page := parsePage(string(body))
	return score(page, vctx), nil
}

// page holds the textual signal extracted from an HTML document.
type page struct {
	Heading       string
	EarlyListText []string // text of <li> elements appearing before the first major section
	BodyText      string
}

// parsePage tokenizes html and extracts the first heading (h1/h2), the
// text of early list items, and a bounded amount of body text for
// keyword scanning.
func parsePage(htmlSrc string) page {
	z := html.NewTokenizer(strings.NewReader(htmlSrc))
	var p page
	var inHeading, headingDone bool
	var inListItem bool
	var bodyBuilder strings.Builder
	var listCount int

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !headingDone && (tag == "h1" || tag == "h2") {
				inHeading = true
			}
			if tag == "li" && listCount < 20 {
				inListItem = true
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "h1" || tag == "h2" {
				inHeading = false
				if p.Heading != "" {
					headingDone = true
				}
			}
			if tag == "li" {
				inListItem = false
			}

		case html.TextToken:
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if inHeading {
				p.Heading += text
			}
			if inListItem {
				p.EarlyListText = append(p.EarlyListText, text)
				listCount++
			}
			if bodyBuilder.Len() < 50_000 {
				bodyBuilder.WriteString(text)
				bodyBuilder.WriteByte(' ')
			}
		}
	}

	p.BodyText = bodyBuilder.String()
	return p
}

// score applies the positive/negative signal rules and returns a Result.
func score(p page, vctx Context) Result {
	if disambiguationHeading.MatchString(p.Heading) || mayReferTo.MatchString(p.Heading) {
		return Result{Valid: false, Confidence: ConfidenceHigh, Reason: "disambiguation page", Score: 0}
	}

	if disambiguatingProfession(p.Heading) {
		return Result{Valid: false, Confidence: ConfidenceHigh, Reason: "heading names a non-musician profession", Score: 0}
	}

	if countYearParenItems(p.EarlyListText) >= 3 {
		return Result{Valid: false, Confidence: ConfidenceHigh, Reason: "early list resembles a disambiguation index", Score: 0}
	}

	lowerBody := strings.ToLower(p.BodyText)

	score := 0
	var reasons []string

	for _, kw := range specificKeywords {
		if kw.re.MatchString(lowerBody) {
			score += 15
			reasons = append(reasons, "specific keyword: "+kw.text)
		}
	}
	for _, kw := range genericKeywords {
		if kw.re.MatchString(lowerBody) {
			score += 5
		}
	}

	if vctx.BirthYear > 0 && strings.Contains(p.BodyText, strconv.Itoa(vctx.BirthYear)) {
		score += 20
		reasons = append(reasons, "birth year present")
	}
	if vctx.DeathYear > 0 && strings.Contains(p.BodyText, strconv.Itoa(vctx.DeathYear)) {
		score += 10
		reasons = append(reasons, "death year present")
	}

	for _, title := range vctx.SampleTitles {
		if title != "" && strings.Contains(lowerBody, strings.ToLower(title)) {
			score += 15
			reasons = append(reasons, "sample title mentioned: "+title)
			break
		}
	}

	if vctx.EntityName != "" && strings.EqualFold(strings.TrimSpace(p.Heading), strings.TrimSpace(vctx.EntityName)) {
		score += 25
		reasons = append(reasons, "exact name match in heading")
	}

	if score > 100 {
		score = 100
	}

	return Result{
		Valid:      score >= ValidThreshold,
		Confidence: bucket(score),
		Reason:     strings.Join(reasons, "; "),
		Score:      score,
	}
}

func disambiguatingProfession(heading string) bool {
	lower := strings.ToLower(heading)
	for _, prof := range nonMusicianProfessions {
		if strings.Contains(lower, "("+prof+")") {
			return true
		}
	}
	return false
}

func countYearParenItems(items []string) int {
	n := 0
	for _, it := range items {
		if yearParen.MatchString(it) {
			n++
		}
	}
	return n
}

func bucket(score int) Confidence {
	switch {
	case score >= 90:
		return ConfidenceCertain
	case score >= 70:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	case score >= 25:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}
