// Package rule implements the declarative selector engine used by rule-driven site adapters.
//
// A rule is a string of the form "selector@attribute". The selector is a CSS
// expression evaluated with goquery; the attribute names which value to pull
// from the first matching element. When the attribute is omitted (or is the
// literal "Text") the element's inner text is used.
//
// Several candidate rules may be joined with "||" or "," into a fallback
// chain. Candidates are tried strictly in declaration order and the first one
// that yields a non-empty value wins, even if later candidates would match
// too. A chain that matches nothing yields an empty result, never an error;
// only malformed selector syntax is reported as an error.
package rule

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// attrText is the pseudo-attribute selecting an element's inner text.
const attrText = "Text"

// Rule is a single parsed "selector@attribute" candidate.
type Rule struct {
	Selector string
	Attr     string
}

// Chain is an ordered list of fallback candidates.
type Chain []Rule

// Parse splits a raw rule string into its fallback chain.
// An empty string parses to an empty chain, which extracts nothing.
func Parse(raw string) (Chain, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var chain Chain
	for _, candidate := range splitCandidates(raw) {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		selector, attr := candidate, attrText
		if idx := strings.LastIndex(candidate, "@"); idx >= 0 {
			selector = strings.TrimSpace(candidate[:idx])
			attr = strings.TrimSpace(candidate[idx+1:])
			if attr == "" {
				attr = attrText
			}
		}
		// A bare "Text" or "@attr" candidate addresses the scoped element
		// itself rather than a descendant.
		if selector == attrText {
			selector = ""
		}
		if selector != "" {
			if _, err := cascadia.Compile(selector); err != nil {
				return nil, fmt.Errorf("rule %q: %w", raw, err)
			}
		}

		chain = append(chain, Rule{Selector: selector, Attr: attr})
	}
	return chain, nil
}

// splitCandidates honors both supported delimiters. "||" binds first so that
// selectors containing commas (e.g. "div.a, div.b") stay intact when the
// author chose pipes.
func splitCandidates(raw string) []string {
	if strings.Contains(raw, "||") {
		return strings.Split(raw, "||")
	}
	return strings.Split(raw, ",")
}

// Extract returns the first non-empty value the chain produces within sel.
func Extract(sel *goquery.Selection, raw string) (string, error) {
	chain, err := Parse(raw)
	if err != nil {
		return "", err
	}
	for _, r := range chain {
		if v := extractOne(scope(sel, r).First(), r.Attr); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// ExtractAll returns every non-empty value produced by the first candidate
// that matches at least one element with a non-empty extraction.
func ExtractAll(sel *goquery.Selection, raw string) ([]string, error) {
	chain, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	for _, r := range chain {
		var values []string
		scope(sel, r).Each(func(_ int, s *goquery.Selection) {
			if v := extractOne(s, r.Attr); v != "" {
				values = append(values, v)
			}
		})
		if len(values) > 0 {
			return values, nil
		}
	}
	return nil, nil
}

// EachContainer selects all container elements matched by containerRule and
// invokes fn once per container. Field rules applied inside fn are scoped to
// the container element, which keeps name/pic/remark extraction aligned when
// a page repeats the same cell markup.
func EachContainer(doc *goquery.Document, containerRule string, fn func(int, *goquery.Selection)) error {
	chain, err := Parse(containerRule)
	if err != nil {
		return err
	}
	for _, r := range chain {
		matched := doc.Find(r.Selector)
		if matched.Length() == 0 {
			continue
		}
		matched.Each(fn)
		return nil
	}
	return nil
}

// scope resolves a candidate within sel: an empty selector addresses sel
// itself, anything else its matching descendants.
func scope(sel *goquery.Selection, r Rule) *goquery.Selection {
	if r.Selector == "" {
		return sel
	}
	return sel.Find(r.Selector)
}

func extractOne(sel *goquery.Selection, attr string) string {
	if sel.Length() == 0 {
		return ""
	}
	switch attr {
	case attrText, "text":
		return strings.TrimSpace(sel.Text())
	default:
		v, _ := sel.Attr(attr)
		return strings.TrimSpace(v)
	}
}

// AbsURL resolves a possibly-relative extracted URL against the page's base
// URL. Poster and episode links scraped from src/data-src/href attributes are
// frequently relative; every consumer-facing URL must pass through here
// before leaving an adapter.
func AbsURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "data:") || strings.HasPrefix(href, "magnet:") {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
