// Package moderation screens user-supplied text.
package moderation

import goaway "github.com/TwiN/go-away"

// Filter reports whether text contains profanity.
type Filter interface {
	IsProfane(text string) bool
}

// ProfanityFilter uses the default go-away dictionary.
type ProfanityFilter struct {
	detector *goaway.ProfanityDetector
}

// NewProfanityFilter builds a filter with go-away's default word lists.
func NewProfanityFilter() *ProfanityFilter {
	return &ProfanityFilter{detector: goaway.NewProfanityDetector()}
}

func (f *ProfanityFilter) IsProfane(text string) bool {
	return f.detector.IsProfane(text)
}

// Allow accepts everything.
type Allow struct{}

func (Allow) IsProfane(string) bool { return false }
