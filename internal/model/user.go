package model

import (
	"errors"
	"time"
)

// Grade is the class level a user studies in.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
	GradeG Grade = "G"
)

// ErrInvalidGrade is returned for any grade outside A..G.
var ErrInvalidGrade = errors.New("Invalid grade. Must be one of: A, B, C, D, E, F, G")

// Valid reports whether g is one of A..G.
func (g Grade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeE, GradeF, GradeG:
		return true
	}
	return false
}

// ParseGrade converts s into a Grade.
func ParseGrade(s string) (Grade, error) {
	g := Grade(s)
	if !g.Valid() {
		return "", ErrInvalidGrade
	}
	return g, nil
}

// User is the profile row backing an authenticated identity.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id" validate:"required"`
	Email     string    `gorm:"not null;default:''" json:"email"`
	FullName  *string   `json:"full_name"`
	Grade     *Grade    `gorm:"type:text" json:"grade" validate:"omitempty,oneof=A B C D E F G"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the full name, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// UserRef is the owner snapshot attached to a summary projection.
type UserRef struct {
	ID       string  `json:"id"`
	FullName *string `json:"full_name"`
}

// UserPatch carries the profile fields a user may edit.
type UserPatch struct {
	FullName *string `json:"full_name,omitempty"`
	Grade    *string `json:"grade,omitempty"`
}

// UserFilters selects a page of users.
type UserFilters struct {
	Page   int
	Limit  int
	Search string
	Grade  string
}

// Normalize fills defaults.
func (f UserFilters) Normalize() UserFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	return f
}

// Offset is the index of the first row on the page.
func (f UserFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// UserPage is one page of the users collection.
type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
