package models

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

const (
	MinBookingDuration = 15
	MaxBookingDuration = 480
)

type Booking struct {
	ID            int64             `json:"id" db:"id"`
	UserID        int64             `json:"userId" db:"userid"`
	CounselorID   int64             `json:"counselorId" db:"counselorid"`
	SessionDate   time.Time         `json:"sessionDate" db:"sessiondate"`
	Duration      int               `json:"duration" db:"duration"`
	Status        BookingStatus     `json:"status" db:"status"`
	Notes         *string           `json:"notes,omitempty" db:"notes"`
	MeetingLink   *string           `json:"meetingLink,omitempty" db:"meetinglink"`
	GoogleEventID *string           `json:"googleEventId,omitempty" db:"googleeventid"`
	CreatedAt     time.Time         `json:"createdAt" db:"createdat"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updatedat"`
	User          *BookingUser      `json:"user,omitempty" db:"-"`
	Counselor     *CounselorSummary `json:"counselor,omitempty" db:"-"`
}

// End is the exclusive end of the session.
func (b *Booking) End() time.Time {
	return b.SessionDate.Add(time.Duration(b.Duration) * time.Minute)
}

// BookingUser is the slice of a user embedded in booking responses.
type BookingUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type BookingFilter struct {
	UserID      *int64        `form:"userId" binding:"omitempty,gt=0"`
	CounselorID *int64        `form:"counselorId" binding:"omitempty,gt=0"`
	Status      BookingStatus `form:"status" binding:"omitempty,booking_status"`
	StartDate   string        `form:"startDate" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndDate     string        `form:"endDate" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Search      string        `form:"search" binding:"omitempty,max=150"`
}

// BookingUpdate carries the columns a booking change may touch. Nil fields are
// left as they are; ClearGoogleEvent nulls googleeventid.
type BookingUpdate struct {
	SessionDate      *time.Time
	Duration         *int
	Status           *BookingStatus
	Notes            *string
	MeetingLink      *string
	GoogleEventID    *string
	ClearGoogleEvent bool
}

type CreateBookingRequest struct {
	CounselorID int64   `json:"counselorId" binding:"required,gt=0"`
	SessionDate string  `json:"sessionDate" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Duration    int     `json:"duration" binding:"required,min=15,max=480"`
	Notes       *string `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateBookingRequest struct {
	SessionDate *string `json:"sessionDate" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Duration    *int    `json:"duration" binding:"omitempty,min=15,max=480"`
	Notes       *string `json:"notes" binding:"omitempty,max=1000"`
	MeetingLink *string `json:"meetingLink" binding:"omitempty,url"`
}
