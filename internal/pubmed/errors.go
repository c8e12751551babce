// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import "fmt"

// SearchError reports a failed article search. It carries the query so the
// caller can report an actionable message without exposing storage details.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("searching PubMed Central for %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// FetchError reports a failed article fetch or an unparseable document.
type FetchError struct {
	PMCID string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching article PMC%s: %v", e.PMCID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
