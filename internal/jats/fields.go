// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import (
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/protocol-engine/pkg/types"
)

// Defaults substituted when article metadata is absent. Absence of any of
// these fields is expected in PMC XML and never an error.
const (
	defaultTitle   = "untitled"
	defaultJournal = "unknown journal"
)

// timeNow is the clock used for the publication-year default. Package var
// so tests can pin it.
var timeNow = time.Now

// ParseArticle extracts an Article from a parsed document. Extraction is
// deterministic and order-independent over the tree: each field comes from
// the first matching node in document order, with defaults where absent.
// The canonical URL is filled in by the caller.
func ParseArticle(root *Node, pmcID string) *types.Article {
	return &types.Article{
		PMCID:       pmcID,
		PMID:        articleID(root, "pmid"),
		Title:       fieldText(root, "article-title", defaultTitle),
		Authors:     authors(root),
		Journal:     fieldText(root, "journal-title", defaultJournal),
		Year:        pubYear(root),
		DOI:         articleID(root, "doi"),
		Abstract:    abstract(root),
		MethodsText: MethodsText(root),
	}
}

// fieldText returns the flattened text of the first descendant with the
// given name, or def when the node is absent or empty.
func fieldText(root *Node, name, def string) string {
	n := root.Find(name)
	if n == nil {
		return def
	}
	if text := n.FlatText(); text != "" {
		return text
	}
	return def
}

// authors collects "given-names surname" for every author-typed
// contributor. Contributors without a surname are skipped.
func authors(root *Node) []string {
	var out []string
	for _, contrib := range root.FindAll("contrib") {
		if contrib.Attr("contrib-type") != "author" {
			continue
		}
		surname := fieldText(contrib, "surname", "")
		if surname == "" {
			continue
		}
		given := fieldText(contrib, "given-names", "")
		out = append(out, strings.TrimSpace(given+" "+surname))
	}
	return out
}

// pubYear returns the first pub-date year, defaulting to the current
// calendar year.
func pubYear(root *Node) string {
	for _, pd := range root.FindAll("pub-date") {
		if y := pd.Child("year"); y != nil {
			if text := y.FlatText(); text != "" {
				return text
			}
		}
	}
	return strconv.Itoa(timeNow().Year())
}

// articleID returns the article-id of the given pub-id-type, or "".
func articleID(root *Node, idType string) string {
	for _, id := range root.FindAll("article-id") {
		if id.Attr("pub-id-type") == idType {
			return id.FlatText()
		}
	}
	return ""
}

// abstract returns the space-joined abstract text, or "".
func abstract(root *Node) string {
	a := root.Find("abstract")
	if a == nil {
		return ""
	}
	return a.JoinedText()
}
