package models

import "time"

// OTPPurpose tags why a one-time code was issued. Together with the user id it
// forms the uniqueness key of the otps table.
type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "EMAIL_VERIFICATION"
	OTPPurposePasswordReset     OTPPurpose = "PASSWORD_RESET"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPPurposeEmailVerification, OTPPurposePasswordReset:
		return true
	default:
		return false
	}
}

// OneTimeCode is the single outstanding code for a (user, purpose) pair.
type OneTimeCode struct {
	ID         int64          `json:"id" db:"id"`
	UserID     int64          `json:"userId" db:"userid"`
	Purpose    OTPPurpose     `json:"purpose" db:"purpose"`
	Identifier *string        `json:"identifier,omitempty" db:"identifier"`
	Code       string         `json:"-" db:"otp"`
	ExpiresAt  time.Time      `json:"expiresAt" db:"expiresat"`
	ConsumedAt *time.Time     `json:"consumedAt,omitempty" db:"consumedat"`
	Metadata   map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"createdAt" db:"createdat"`
	UpdatedAt  time.Time      `json:"updatedAt" db:"updatedat"`
}
