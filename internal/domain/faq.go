package domain

import "time"

// FAQ is a knowledge-base entry used for search and first responses.
type FAQ struct {
	ID         int64
	Question   string
	Answer     string
	Category   Category
	Keywords   []string
	Views      int
	Helpful    int
	NotHelpful int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
