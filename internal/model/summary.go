package model

import (
	"time"

	"gorm.io/datatypes"
)

// Summary is a shared study-material entry owned by one user.
type Summary struct {
	ID           string                      `gorm:"primaryKey;type:text" json:"id" validate:"required"`
	Name         string                      `gorm:"not null" json:"name" validate:"required"`
	Description  *string                     `json:"description"`
	UserID       string                      `gorm:"index;not null" json:"user_id" validate:"required"`
	FileURLs     datatypes.JSONSlice[string] `json:"file_urls"`
	UploadDate   time.Time                   `json:"upload_date"`
	LastEditedAt time.Time                   `json:"last_edited_at"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// SummaryWithUser is the read projection of a summary with its owner.
type SummaryWithUser struct {
	Summary
	User *UserRef `json:"user"`
}

// WithUser attaches the owner snapshot. A user without a full name yields a nil ref.
func (s Summary) WithUser(fullName *string) SummaryWithUser {
	out := SummaryWithUser{Summary: s}
	if fullName != nil && *fullName != "" {
		out.User = &UserRef{ID: s.UserID, FullName: fullName}
	}
	return out
}

// SummaryInput is the body of a create call.
type SummaryInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	FileURLs    []string `json:"file_urls"`
}

// SummaryPatch is the body of an update call. Nil fields are left unchanged.
type SummaryPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	FileURLs    []string `json:"file_urls,omitempty"`
}

// SummaryPage is one page of the summaries catalog.
type SummaryPage struct {
	Summaries  []SummaryWithUser `json:"summaries"`
	Pagination Pagination        `json:"pagination"`
}
