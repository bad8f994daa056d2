package models

import "time"

// Status is the moderation state of a submission. Any status is reachable
// from any other; no workflow machine is enforced.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// ParseStatus returns the Status for raw, reporting whether it is recognised.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return Status(raw), true
	}
	return "", false
}

// Category classifies a submission on the storefront.
type Category string

const (
	CategorySocial        Category = "social"
	CategoryProductivity  Category = "productivity"
	CategoryEntertainment Category = "entertainment"
	CategoryEducation     Category = "education"
	CategoryBusiness      Category = "business"
)

// ParseCategory returns the Category for raw, reporting whether it is recognised.
func ParseCategory(raw string) (Category, bool) {
	switch Category(raw) {
	case CategorySocial, CategoryProductivity, CategoryEntertainment, CategoryEducation, CategoryBusiness:
		return Category(raw), true
	}
	return "", false
}

// Action is a moderation verdict applied to a single submission.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionFlag    Action = "flag"
)

// ParseAction returns the Action for raw, reporting whether it is recognised.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionApprove, ActionReject, ActionFlag:
		return Action(raw), true
	}
	return "", false
}

// TargetStatus maps an action to the status it produces.
func (a Action) TargetStatus() Status {
	switch a {
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	default:
		return StatusFlagged
	}
}

// Developer identifies who submitted the app. Embedded in the submission row,
// not normalised into its own table.
type Developer struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// Metadata carries storefront statistics for a submission.
type Metadata struct {
	Downloads int64   `db:"downloads" json:"downloads"`
	Rating    float64 `db:"rating" json:"rating"`
	FileSize  float64 `db:"file_size" json:"fileSize"`
}

// Submission is one app awaiting (or past) moderation review.
type Submission struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Status      Status    `db:"status" json:"status"`
	Category    Category  `db:"category" json:"category"`
	Version     string    `db:"version" json:"version"`
	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	Developer   Developer `db:"developer" json:"developer"`
	Metadata    Metadata  `db:"metadata" json:"metadata"`
}

// ListFilter encapsulates the search, filter, sort and cursor parameters for
// listing submissions. Empty sets mean unconstrained, not match-nothing.
type ListFilter struct {
	Search     string
	Statuses   []Status
	Categories []Category
	SortBy     string
	SortOrder  string
	Cursor     string
	PageSize   int
}

// PageInfo is the pagination metadata accompanying a listing page.
type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	NextCursor      string `json:"nextCursor,omitempty"`
	TotalCount      int    `json:"totalCount"`
}

// Page is one bounded window of submissions plus its pagination metadata.
type Page struct {
	Data       []Submission `json:"data"`
	Pagination PageInfo     `json:"pagination"`
}
