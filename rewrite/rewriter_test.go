package rewrite

import (
	"strings"
	"testing"
)

func testNamespaceMap() *NamespaceMap {
	return &NamespaceMap{
		Names: map[string]string{
			"Template":      "Modèle",
			"Template talk": "Discussion modèle",
			"Module":        "Module",
		},
	}
}

func testRewriter(t *testing.T) *Rewriter {
	t.Helper()
	return NewRewriter("Wp/xyz", testNamespaceMap())
}

func TestRewriteTitle(t *testing.T) {
	r := testRewriter(t)

	tests := []struct {
		title string
		want  string
	}{
		{"Wp/xyz/Main Page", "Main Page"},
		{"Wp/xyz/Page/Sub", "Page/Sub"},
		{"wp/xyz/Main Page", "Main Page"},
		{"Template:Wp/xyz/Infobox", "Template:Infobox"},
		{"Unrelated", "Unrelated"},
	}
	for _, tt := range tests {
		if got := r.RewriteTitle(tt.title); got != tt.want {
			t.Errorf("RewriteTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestStripPrefixInsideLinks(t *testing.T) {
	r := testRewriter(t)

	got := r.RewriteLine("See [[Wp/xyz/History]] and [[wp/xyz/Culture]].")
	want := "See [[History]] and [[Culture]]."
	if got != want {
		t.Errorf("RewriteLine = %q, want %q", got, want)
	}
}

func TestSimplifyPipeLinks(t *testing.T) {
	r := testRewriter(t)

	tests := []struct {
		name string
		line string
		want string
	}{
		{"identical display", "[[Foo|Foo]]", "[[Foo]]"},
		{"first letter case differs", "[[Foo|foo]]", "[[Foo]]"},
		{"word suffix moves outside", "[[Foo|foobar]]", "[[Foo]]bar"},
		{"unrelated display kept", "[[Foo|bar]]", "[[Foo|bar]]"},
		{"non-word suffix kept", "[[Foo|foo-fighter]]", "[[Foo|foo-fighter]]"},
		{"shorter display kept", "[[Foobar|foo]]", "[[Foobar|foo]]"},
		{"two links on one line", "[[Foo|foos]] and [[Bar|bar]]", "[[Foo]]s and [[Bar]]"},
		{"prefix stripped before matching", "[[Wp/xyz/Foo|Foo]]", "[[Foo]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RewriteLine(tt.line); got != tt.want {
				t.Errorf("RewriteLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSimplifyPipeLinksCaseSensitiveWiki(t *testing.T) {
	ns := testNamespaceMap()
	ns.CaseSensitive = true
	r := NewRewriter("Wp/xyz", ns)

	if got := r.RewriteLine("[[Foo|foo]]"); got != "[[Foo|foo]]" {
		t.Errorf("case-sensitive wiki must keep [[Foo|foo]], got %q", got)
	}
	if got := r.RewriteLine("[[Foo|Foo]]"); got != "[[Foo]]" {
		t.Errorf("exact match must still simplify, got %q", got)
	}
	if got := r.RewriteLine("[[foo|foos]]"); got != "[[foo]]s" {
		t.Errorf("exact match with suffix must simplify, got %q", got)
	}
}

func TestStripBaseCategory(t *testing.T) {
	r := testRewriter(t)

	tests := []struct {
		line string
		want string
	}{
		{"[[Category:Wp/xyz]]\n", ""},
		{"[[Category:Wp/xyz|{{PAGENAME}}]]\n", ""},
		{"[[Category:wp/xyz]]", ""},
		// Not the whole line, so it is not the bookkeeping category line.
		{"Text [[Category:Wp/xyz]]\n", "Text [[Category:Wp/xyz]]\n"},
	}
	for _, tt := range tests {
		if got := r.RewriteLine(tt.line); got != tt.want {
			t.Errorf("RewriteLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestCleanSortKey(t *testing.T) {
	r := testRewriter(t)

	tests := []struct {
		line string
		want string
	}{
		{"[[Category:Rivers|{{PAGENAME}}]]", "[[Category:Rivers]]"},
		{"[[Category:Rivers|{{SUBPAGENAME}}]]", "[[Category:Rivers]]"},
		{"[[Category:Rivers|R]]", "[[Category:Rivers]]"},
		{"[[Category:Rivers|Rhine]]", "[[Category:Rivers|Rhine]]"},
		{"[[Category:Rivers]]", "[[Category:Rivers]]"},
	}
	for _, tt := range tests {
		if got := r.RewriteLine(tt.line); got != tt.want {
			t.Errorf("RewriteLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestTranslateNamespaces(t *testing.T) {
	r := testRewriter(t)

	tests := []struct {
		line string
		want string
	}{
		{"{{tl|x}} [[Template:Infobox]]", "{{tl|x}} [[Modèle:Infobox]]"},
		{"[[template:Infobox]]", "[[Modèle:Infobox]]"},
		{"[[Template talk:Infobox]]", "[[Discussion modèle:Infobox]]"},
		// Canonical equals localized: no rule, nothing to do.
		{"[[Module:Citation]]", "[[Module:Citation]]"},
		// Empty title is left alone.
		{"[[Template:]]", "[[Template:]]"},
	}
	for _, tt := range tests {
		if got := r.RewriteLine(tt.line); got != tt.want {
			t.Errorf("RewriteLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestRewriteMultiline(t *testing.T) {
	r := testRewriter(t)

	input := strings.Join([]string{
		"'''[[Wp/xyz/Foo|Foo]]''' is a place.",
		"",
		"[[Template:Wp/xyz/Infobox]]",
		"[[Category:Wp/xyz]]",
		"[[Category:Places|{{PAGENAME}}]]",
	}, "\n") + "\n"

	want := strings.Join([]string{
		"'''[[Foo]]''' is a place.",
		"",
		"[[Modèle:Infobox]]",
		"[[Category:Places]]",
	}, "\n") + "\n"

	if got := r.Rewrite(input); got != want {
		t.Errorf("Rewrite produced:\n%q\nwant:\n%q", got, want)
	}
}

func TestRewriteIdempotent(t *testing.T) {
	r := testRewriter(t)

	input := strings.Join([]string{
		"[[Wp/xyz/Foo|foos]] live in [[Wp/xyz/Bar]].",
		"[[Template:Wp/xyz/Navbox]]",
		"[[Category:Wp/xyz|{{SUBPAGENAME}}]]",
		"[[Category:Towns|T]]",
	}, "\n") + "\n"

	once := r.Rewrite(input)
	twice := r.Rewrite(once)
	if once != twice {
		t.Errorf("rewrite is not idempotent:\nfirst:  %q\nsecond: %q", once, twice)
	}
}

func TestRewriteEmptyText(t *testing.T) {
	r := testRewriter(t)
	if got := r.Rewrite(""); got != "" {
		t.Errorf("Rewrite(\"\") = %q, want empty", got)
	}
}

func TestFirstLetterInsensitive(t *testing.T) {
	re := firstLetterInsensitive("Template")
	if re != "[Tt]emplate" {
		t.Errorf("firstLetterInsensitive(Template) = %q", re)
	}
	if firstLetterInsensitive("") != "" {
		t.Error("empty input must stay empty")
	}
}

func TestEqualFoldFirstLetter(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Foo", "foo", true},
		{"foo", "foo", true},
		{"Foo", "fOo", false},
		{"Foo", "Bar", false},
		{"Étang", "étang", true},
	}
	for _, tt := range tests {
		if got := equalFoldFirstLetter(tt.a, tt.b); got != tt.want {
			t.Errorf("equalFoldFirstLetter(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
