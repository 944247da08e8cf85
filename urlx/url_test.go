package urlx

import "testing"

func TestParseBasic(t *testing.T) {
	u := Parse("https://example.com/search?q=openai#top")
	if u.Scheme != "https" || u.Host != "example.com" || u.Path != "/search" {
		t.Fatalf("unexpected parse: %+v", u)
	}
	if u.Queries["q"] != "openai" {
		t.Fatalf("expected q=openai, got %v", u.Queries)
	}
	if u.Fragment != "top" {
		t.Fatalf("expected fragment top, got %q", u.Fragment)
	}
}

func TestParseNoScheme(t *testing.T) {
	u := Parse("127.0.0.1:8080/api")
	if u.Host != "127.0.0.1" || u.Port != "8080" || u.Path != "/api" {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestParseIPv6(t *testing.T) {
	u := Parse("tcp://[::1]:502/x")
	if u.Host != "::1" || u.Port != "502" || u.Path != "/x" {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestParseEmptyPath(t *testing.T) {
	u := Parse("http://example.com")
	if u.Path != "/" {
		t.Fatalf("expected default path /, got %q", u.Path)
	}
}

func TestFragmentBeforeQuery(t *testing.T) {
	// '#' precedes what would be a '?' lexically inside the fragment: no
	// query is parsed, per spec.md §4.1.
	u := Parse("http://example.com/a#frag?not-a-query")
	if u.Fragment != "frag?not-a-query" {
		t.Fatalf("expected fragment to swallow the rest, got %q", u.Fragment)
	}
	if len(u.Queries) != 0 {
		t.Fatalf("expected no queries, got %v", u.Queries)
	}
}

func TestPercentDecodeRoundTrip(t *testing.T) {
	u := Parse("http://x/p?name=John%20Doe&tag=a%26b")
	if u.Queries["name"] != "John Doe" {
		t.Fatalf("got %q", u.Queries["name"])
	}
	if u.Queries["tag"] != "a&b" {
		t.Fatalf("got %q", u.Queries["tag"])
	}
}

func TestFullPathRoundTrip(t *testing.T) {
	u := Parse("http://x/search?q=a&b=c#frag")
	u2 := Parse("http://x" + u.FullPath)
	if u2.Path != u.Path || u2.Fragment != u.Fragment {
		t.Fatalf("round-trip mismatch: %+v vs %+v", u, u2)
	}
	if u2.Queries["q"] != u.Queries["q"] || u2.Queries["b"] != u.Queries["b"] {
		t.Fatalf("round-trip query mismatch: %+v vs %+v", u, u2)
	}
}

func TestDefaultPort(t *testing.T) {
	u := Parse("https://example.com/")
	if u.EffectivePort() != "443" {
		t.Fatalf("expected 443, got %s", u.EffectivePort())
	}
}
