package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Counselor struct {
	ID                int64               `json:"id" db:"id"`
	FullName          string              `json:"fullName" db:"fullname"`
	Title             string              `json:"title" db:"title"`
	YearsOfExperience int                 `json:"yearsOfExperience" db:"yearsofexperience"`
	Bio               *string             `json:"bio,omitempty" db:"bio"`
	AvatarURL         *string             `json:"avatarUrl,omitempty" db:"avatarurl"`
	Specialties       []string            `json:"specialties" db:"specialties"`
	IsActive          bool                `json:"isActive" db:"isactive"`
	Rating            decimal.NullDecimal `json:"rating" db:"rating"`
	CreatedAt         time.Time           `json:"createdAt" db:"createdat"`
	UpdatedAt         time.Time           `json:"updatedAt" db:"updatedat"`
}

// CounselorSummary is the slice of a counselor embedded in booking responses.
type CounselorSummary struct {
	ID        int64   `json:"id"`
	FullName  string  `json:"fullName"`
	Title     string  `json:"title"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type CounselorFilter struct {
	Search   string `form:"search" binding:"omitempty,max=150"`
	IsActive *bool  `form:"isActive"`
}

type CreateCounselorRequest struct {
	FullName          string   `json:"fullName" binding:"required,min=2,max=150"`
	Title             string   `json:"title" binding:"required,min=2,max=150"`
	YearsOfExperience *int     `json:"yearsOfExperience" binding:"omitempty,min=0,max=80"`
	Bio               *string  `json:"bio" binding:"omitempty,max=5000"`
	AvatarURL         *string  `json:"avatarUrl" binding:"omitempty,url"`
	Specialties       []string `json:"specialties" binding:"omitempty,dive,min=1"`
	IsActive          *bool    `json:"isActive"`
	Rating            *float64 `json:"rating" binding:"omitempty,min=0,max=5"`
	// UserID links an existing login to the counselor profile.
	UserID *int64 `json:"userId" binding:"omitempty,gt=0"`
}

type UpdateCounselorRequest struct {
	FullName          *string  `json:"fullName" binding:"omitempty,min=2,max=150"`
	Title             *string  `json:"title" binding:"omitempty,min=2,max=150"`
	YearsOfExperience *int     `json:"yearsOfExperience" binding:"omitempty,min=0,max=80"`
	Bio               *string  `json:"bio" binding:"omitempty,max=5000"`
	AvatarURL         *string  `json:"avatarUrl" binding:"omitempty,url"`
	Specialties       []string `json:"specialties" binding:"omitempty,dive,min=1"`
	IsActive          *bool    `json:"isActive"`
	Rating            *float64 `json:"rating" binding:"omitempty,min=0,max=5"`
	// UserID links an existing login to the counselor profile.
	UserID *int64 `json:"userId" binding:"omitempty,gt=0"`
}

// CounselorUpdate carries the columns a counselor change may touch. Nil fields
// are left as they are.
type CounselorUpdate struct {
	FullName          *string
	Title             *string
	YearsOfExperience *int
	Bio               *string
	AvatarURL         *string
	Specialties       []string
	IsActive          *bool
	Rating            *decimal.NullDecimal
}
