package rewrite

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// pipeLinkRe matches [[target|display]] with minimal matching so nested
// structures containing pipes are not mis-merged.
var pipeLinkRe = regexp.MustCompile(`\[\[(.+?)\|(.+?)\]\]`)

// wordSuffixRe recognizes a trailing word-suffix that may be moved outside a
// simplified link.
var wordSuffixRe = regexp.MustCompile(`^\w*$`)

// Rewriter applies the ordered line-transformation pipeline for one wiki.
// Construction precompiles every pattern; RewriteLine itself is stateless
// and idempotent: a second pass over rewritten text finds nothing left to
// change.
type Rewriter struct {
	prefix    string
	ns        *NamespaceMap
	prefixRe  *regexp.Regexp
	baseCatRe *regexp.Regexp
	sortKeyRe *regexp.Regexp
	nsRules   []nsRule
}

type nsRule struct {
	re        *regexp.Regexp
	localized string
}

// NewRewriter builds the pipeline for a source prefix and a resolved
// namespace mapping.
func NewRewriter(prefix string, ns *NamespaceMap) *Rewriter {
	r := &Rewriter{
		prefix:    prefix,
		ns:        ns,
		prefixRe:  regexp.MustCompile(firstLetterInsensitive(prefix) + "/"),
		baseCatRe: regexp.MustCompile(`^\[\[Category:` + firstLetterInsensitive(prefix) + `[^\]]*\]\]\n?$`),
		sortKeyRe: regexp.MustCompile(`(\[\[Category:[^|\]]+)\|(?:\{\{PAGENAME\}\}|\{\{SUBPAGENAME\}\}|[^|\]])\]\]`),
	}

	// Deterministic rule order; map iteration order would make rewrites
	// flap between runs when one canonical name prefixes another.
	canonicals := make([]string, 0, len(ns.Names))
	for canonical := range ns.Names {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)
	for _, canonical := range canonicals {
		localized := ns.Names[canonical]
		if canonical == localized {
			continue
		}
		r.nsRules = append(r.nsRules, nsRule{
			re:        regexp.MustCompile(`\[\[` + firstLetterInsensitive(canonical) + `:([^|\]])`),
			localized: localized,
		})
	}
	return r
}

// RewriteTitle maps a source page title to its destination title by
// stripping the project prefix. No other pipeline stage applies to titles.
func (r *Rewriter) RewriteTitle(title string) string {
	return r.stripPrefix(title)
}

// Rewrite applies the pipeline to every line of text, preserving each
// line's trailing newline.
func (r *Rewriter) Rewrite(text string) string {
	if text == "" {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for _, line := range strings.SplitAfter(text, "\n") {
		sb.WriteString(r.RewriteLine(line))
	}
	return sb.String()
}

// RewriteLine applies the pipeline, in fixed order, to a single line. Later
// rules assume earlier ones already normalized the text.
func (r *Rewriter) RewriteLine(line string) string {
	line = r.stripPrefix(line)
	line = r.simplifyPipeLinks(line)
	line = r.stripBaseCategory(line)
	line = r.cleanSortKey(line)
	line = r.translateNamespaces(line)
	return line
}

// stripPrefix undoes the Incubator's project-prefixing convention by
// removing every "<prefix>/" occurrence, case-insensitive on the first
// letter only.
func (r *Rewriter) stripPrefix(line string) string {
	return r.prefixRe.ReplaceAllString(line, "")
}

// simplifyPipeLinks reduces [[Target|target]] to [[Target]] and
// [[Target|targetsuffix]] to [[Target]]suffix. On case-insensitive-first-
// letter wikis the display may differ from the target in its first letter's
// case; on case-sensitive wikis the match is exact.
func (r *Rewriter) simplifyPipeLinks(line string) string {
	return replaceAllSubmatchFunc(pipeLinkRe, line, func(target, display string) (string, bool) {
		if len(display) < len(target) {
			return "", false
		}
		head, suffix := display[:len(target)], display[len(target):]
		if !wordSuffixRe.MatchString(suffix) {
			return "", false
		}
		if r.ns.CaseSensitive {
			if head != target {
				return "", false
			}
		} else if !equalFoldFirstLetter(head, target) {
			return "", false
		}
		return "[[" + target + "]]" + suffix, true
	})
}

// stripBaseCategory removes a whole-line Incubator bookkeeping category,
// trailing newline included.
func (r *Rewriter) stripBaseCategory(line string) string {
	return r.baseCatRe.ReplaceAllString(line, "")
}

// cleanSortKey drops a {{PAGENAME}}/{{SUBPAGENAME}} or single-character sort
// key from a category link, leaving [[Category:Name]].
func (r *Rewriter) cleanSortKey(line string) string {
	return r.sortKeyRe.ReplaceAllString(line, "${1}]]")
}

// translateNamespaces rewrites [[Canonical:Title links into the
// destination's localized namespace names, case-insensitive on the first
// letter of the canonical name. Links with an empty title are left alone.
func (r *Rewriter) translateNamespaces(line string) string {
	for _, rule := range r.nsRules {
		line = rule.re.ReplaceAllString(line, "[["+rule.localized+":${1}")
	}
	return line
}

// replaceAllSubmatchFunc rewrites every two-submatch occurrence of re in
// line through fn; fn returns the replacement and whether to apply it.
func replaceAllSubmatchFunc(re *regexp.Regexp, line string, fn func(a, b string) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line
	}
	var sb strings.Builder
	sb.Grow(len(line))
	last := 0
	for _, m := range matches {
		replacement, ok := fn(line[m[2]:m[3]], line[m[4]:m[5]])
		if !ok {
			continue
		}
		sb.WriteString(line[last:m[0]])
		sb.WriteString(replacement)
		last = m[1]
	}
	sb.WriteString(line[last:])
	return sb.String()
}

// equalFoldFirstLetter reports whether a and b are identical apart from the
// case of their first letter.
func equalFoldFirstLetter(a, b string) bool {
	if a == b {
		return true
	}
	ra, sa := utf8.DecodeRuneInString(a)
	rb, sb := utf8.DecodeRuneInString(b)
	if ra == utf8.RuneError || rb == utf8.RuneError {
		return false
	}
	if unicode.ToLower(ra) != unicode.ToLower(rb) {
		return false
	}
	return a[sa:] == b[sb:]
}

// firstLetterInsensitive builds a pattern matching s with its first letter
// in either case; the rest is matched literally.
func firstLetterInsensitive(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	upper, lower := unicode.ToUpper(first), unicode.ToLower(first)
	rest := regexp.QuoteMeta(s[size:])
	if upper == lower {
		return regexp.QuoteMeta(s)
	}
	return "[" + regexp.QuoteMeta(string(upper)) + regexp.QuoteMeta(string(lower)) + "]" + rest
}
