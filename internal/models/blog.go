package models

import "time"

// Blog is a series of articles sharing an author and source page. Identity
// is SourceURL; blogs are created on first sighting and replaced wholesale
// on subsequent crawls. Optional numeric fields are nil when the source
// does not expose them; zero time values mean the datetime is unknown.
type Blog struct {
	ID              string
	Title           string
	Author          string
	SourceName      string
	SourceURL       string
	PublicationDT   time.Time
	LastUpdatedDT   time.Time
	Rating          *float64
	RatingCount     *int
	Tags            []string
	Catchphrase     string
	Introduction    string
	ArticleCount    *int
	TotalCharCount  *int
	CommentCount    *int
	FollowerCount   *int
	InSerialization *bool
	LastCrawledDT   time.Time
}
