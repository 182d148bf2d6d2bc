// Package records persists finished exploration flows as emotion records
// and answers queries over them. Store runs against the local database and
// satisfies explore.Recorder, so a finished workflow submits straight into
// it; Client satisfies the same interface against a remote wavemo server.
package records

import (
	"github.com/wavemo/wavemo/internal/explore"
)

// RecordCard is one card slot of a saved record: the catalog fields needed
// for display plus the strength ratings captured for that card.
type RecordCard struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
	ImagePath    string `json:"image_path,omitempty"`
	BeforeLevel  int    `json:"before_level,omitempty"` // 0 = unrated
	AfterLevel   int    `json:"after_level,omitempty"`  // 0 = unrated
}

// Record is a saved exploration flow.
type Record struct {
	ID        string              `json:"id"`
	Cards     []RecordCard        `json:"cards"`
	Story     string              `json:"story"`
	Actions   string              `json:"actions"`
	Results   string              `json:"results"`
	Feelings  string              `json:"feelings"`
	Expect    explore.Expectation `json:"expect"`
	Reaction  string              `json:"reaction"`
	CreatedAt int64               `json:"created_at"`
	UpdatedAt int64               `json:"updated_at"`
}

// CardIDs returns the record's card ids in slot order.
func (r *Record) CardIDs() []int {
	ids := make([]int, 0, len(r.Cards))
	for _, c := range r.Cards {
		ids = append(ids, c.ID)
	}
	return ids
}
