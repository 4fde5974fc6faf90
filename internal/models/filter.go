package models

// Filter is a saved task-list filter phrase. The backend only stores the set
// per account; matching happens client-side. At most one row may exist per
// (owner, filter) pair.
type Filter struct {
	ID     int64  `json:"id"`
	Owner  int64  `json:"-"`
	Filter string `json:"filter"`
}

// MaxFilterLength bounds a saved filter phrase.
const MaxFilterLength = 50
