// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the protocol-engine pipeline.
package types

// Article holds the metadata and extracted text of a PubMed Central article.
// Articles are produced by the pubmed client on fetch and are never mutated
// afterwards; a re-fetch produces a new value.
type Article struct {
	// PMCID is the PubMed Central identifier, without the "PMC" prefix.
	PMCID string `json:"pmc_id" yaml:"pmc_id"`

	// PMID is the PubMed identifier, if the article carries one.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors as "given-names surname", in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the journal name.
	Journal string `json:"journal" yaml:"journal"`

	// Year is the publication year as printed in the article metadata.
	Year string `json:"year" yaml:"year"`

	// DOI is the digital object identifier, if present.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Abstract is the concatenated abstract text, if present.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// MethodsText is the extracted methods section. Empty means no methods
	// section could be located; that is an expected outcome, not an error.
	MethodsText string `json:"methods_text,omitempty" yaml:"methods_text,omitempty"`

	// FullTextURL is the canonical PMC article URL.
	FullTextURL string `json:"full_text_url" yaml:"full_text_url"`
}

// HasMethods reports whether a methods section was located for the article.
func (a *Article) HasMethods() bool {
	return a.MethodsText != ""
}
