// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"fmt"
	"regexp"
	"strings"
)

// methodsTitles are the section-title phrases recognized as a methods
// section, matched case-insensitively by substring. Article XML is
// inconsistent in how methods are labeled; this list covers the variants
// observed across PMC journals.
var methodsTitles = []string{
	"methods",
	"materials and methods",
	"experimental procedures",
	"methodology",
	"experimental methods",
	"materials & methods",
	"experimental section",
	"experimental",
}

// bodyPatternNames are the fallback text patterns, in priority order.
var bodyPatternNames = []string{"Materials and Methods", "Methods", "Experimental"}

// bodyPatterns match a methods heading in flattened body text, capturing up
// to the next Results/Discussion/Conclusion heading.
var bodyPatterns = compileBodyPatterns()

func compileBodyPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(bodyPatternNames))
	for _, name := range bodyPatternNames {
		patterns = append(patterns, regexp.MustCompile(
			fmt.Sprintf(`(?is)%s[:\s]+(.*?)(?:Results|Discussion|Conclusion)`, regexp.QuoteMeta(name)),
		))
	}
	return patterns
}

// strategy is a pure function that tries to locate the methods text in a
// document. It reports whether it succeeded; failure is not an error.
type strategy func(root *Node) (string, bool)

// strategies are tried in order and the first success wins. The titled
// section scan is structural and precise; the body-pattern fallback trades
// precision for recall and only runs when no titled section matched, so a
// loosely matching body fragment can never shadow a well-defined section.
var strategies = []strategy{titledSection, bodyPattern}

// MethodsText locates the methods section of a parsed article. It returns
// "" when no section can be found; absence is a valid outcome, not an
// error, and downstream stages handle it as "no protocol available".
func MethodsText(root *Node) string {
	for _, s := range strategies {
		if text, ok := s(root); ok {
			return text
		}
	}
	return ""
}

// titledSection scans all sec elements in document order and returns the
// text of the first one whose title contains a methods phrase. Later
// matches are never consulted.
func titledSection(root *Node) (string, bool) {
	for _, sec := range root.FindAll("sec") {
		title := sec.Child("title")
		if title == nil {
			continue
		}
		titleText := strings.ToLower(title.Text)
		if !containsAny(titleText, methodsTitles) {
			continue
		}
		return sectionText(sec, title), true
	}
	return "", false
}

// sectionText concatenates the text and tail of every node in the section,
// in document order, skipping the section title itself and the section's
// own tail (which belongs to the following sibling).
func sectionText(sec, title *Node) string {
	var parts []string
	add := func(s string) {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	for _, n := range sec.Iter() {
		if n != title {
			add(n.Text)
		}
		if n != sec {
			add(n.Tail)
		}
	}
	return strings.Join(parts, " ")
}

// bodyPattern flattens the article body and scans for a methods heading
// followed by text up to the next major heading.
func bodyPattern(root *Node) (string, bool) {
	body := root.Find("body")
	if body == nil {
		return "", false
	}
	bodyText := body.JoinedText()
	for _, re := range bodyPatterns {
		if m := re.FindStringSubmatch(bodyText); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
