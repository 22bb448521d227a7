package store

import "time"

// unclassified is the path label for expenses whose category chain cannot
// be resolved. Matches the label the frontend expects.
const unclassified = "Non classé"

// Category is an expense category. Categories form a tree via ParentID;
// FullPath is the name prefixed with its ancestors ("Food / Restaurants").
type Category struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	ParentID    *int64      `json:"parent_id"`
	FullPath    string      `json:"full_path"`
	Children    []*Category `json:"children"`
}

// CategoryInput carries the fields for creating a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
}

// CategoryPatch carries a partial category update. Nil fields are left
// unchanged. SetParent distinguishes "re-parent to ParentID (possibly
// nil, meaning root)" from "leave the parent alone".
type CategoryPatch struct {
	Name        *string
	Description *string
	ParentID    *int64
	SetParent   bool
}

// Expense is a single expense entry.
type Expense struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	CategoryPath string    `json:"category_path"`
}

// ExpenseInput carries the fields for creating an expense. A nil CreatedAt
// defaults to now; an empty Currency defaults to EUR.
type ExpenseInput struct {
	CategoryID int64      `json:"category_id"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	Note       string     `json:"note"`
	CreatedAt  *time.Time `json:"created_at"`
}

// ExpensePatch carries a partial expense update. Nil fields are left
// unchanged.
type ExpensePatch struct {
	Amount     *float64
	Note       *string
	CreatedAt  *time.Time
	CategoryID *int64
}

// ExpenseFilter narrows expense searches and summaries. Nil fields mean
// "no constraint".
type ExpenseFilter struct {
	CategoryID *int64
	Start      *time.Time
	End        *time.Time
}

// Summary aggregates expense totals over a period, grouped by category
// path. The Period label is a single date when the range covers one day,
// otherwise "start → end".
type Summary struct {
	Period         string             `json:"month"`
	Total          float64            `json:"total"`
	CategoryTotals map[string]float64 `json:"category_totals"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	CategoryID     *int64             `json:"category_id"`
}
