package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveHTML(t *testing.T, htmlBody string) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(htmlBody))
	}))
	t.Cleanup(srv.Close)
	return srv, srv.Client()
}

func TestVerify_MusicianPageScoresValid(t *testing.T) {
	srv, client := serveHTML(t, `
		<html><body>
		<h1>Bill Evans</h1>
		<p>Bill Evans (August 16, 1929 – September 15, 1980) was an American jazz pianist
		and composer known for his trio recordings and influential discography.</p>
		</body></html>
	`)

	result, err := Verify(context.Background(), client, srv.URL, Context{
		EntityName: "Bill Evans",
		BirthYear:  1929,
		DeathYear:  1980,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid=true, got %+v", result)
	}
	if result.Confidence != ConfidenceCertain && result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %v, want high or certain", result.Confidence)
	}
}

func TestVerify_DisambiguationHeadingRejected(t *testing.T) {
	srv, client := serveHTML(t, `
		<html><body>
		<h1>Sam Jones (disambiguation)</h1>
		<p>Sam Jones may refer to several people.</p>
		</body></html>
	`)

	result, err := Verify(context.Background(), client, srv.URL, Context{EntityName: "Sam Jones"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected valid=false for disambiguation page, got %+v", result)
	}
}

func TestVerify_NonMusicianProfessionRejected(t *testing.T) {
	srv, client := serveHTML(t, `
		<html><body>
		<h1>Sam Jones (basketball)</h1>
		<p>Sam Jones was an American professional basketball player.</p>
		</body></html>
	`)

	result, err := Verify(context.Background(), client, srv.URL, Context{EntityName: "Sam Jones"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected valid=false, got %+v", result)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %v, want high", result.Confidence)
	}
}

func TestVerify_DisambiguationIndexListRejected(t *testing.T) {
	srv, client := serveHTML(t, `
		<html><body>
		<h1>Miles</h1>
		<ul>
		<li>Miles Davis (1926-1991), jazz trumpeter</li>
		<li>Miles (2015), a film</li>
		<li>Miles (novel), (2009)</li>
		</ul>
		</body></html>
	`)

	result, err := Verify(context.Background(), client, srv.URL, Context{EntityName: "Miles Davis"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected valid=false for disambiguation-shaped list, got %+v", result)
	}
}

func TestWordBoundary_OperaDoesNotMatchOperating(t *testing.T) {
	for _, kw := range genericKeywords {
		if kw.text == "opera" {
			t.Fatal("test assumes 'opera' is not in genericKeywords; adjust the test keyword instead")
		}
	}
	opera := compileKeywords("opera")[0]
	if opera.re.MatchString("this describes an operating system") {
		t.Error("word-boundary match incorrectly matched 'opera' inside 'operating'")
	}
	if !opera.re.MatchString("she sang opera for decades") {
		t.Error("word-boundary match should match standalone 'opera'")
	}
}

func TestVerify_GenericPageScoresLow(t *testing.T) {
	srv, client := serveHTML(t, `
		<html><body>
		<h1>Some Town</h1>
		<p>Some Town is a small municipality with a population of a few thousand people.</p>
		</body></html>
	`)

	result, err := Verify(context.Background(), client, srv.URL, Context{EntityName: "Bill Evans"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected valid=false for unrelated page, got %+v", result)
	}
}
