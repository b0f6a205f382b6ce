package models

import "time"

const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account. Password and RefreshToken never leave the service layer.
type User struct {
	ID              int64      `json:"id" db:"id"`
	FirstName       string     `json:"firstName" db:"firstname"`
	LastName        string     `json:"lastName" db:"lastname"`
	RoleID          int64      `json:"roleId" db:"roleid"`
	RoleName        string     `json:"roleName,omitempty" db:"-"`
	CounselorID     *int64     `json:"counselorId,omitempty" db:"counselorid"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty" db:"dateofbirth"`
	Email           string     `json:"email" db:"email"`
	Password        string     `json:"-" db:"password"`
	PhoneNumber     *string    `json:"phoneNumber,omitempty" db:"phonenumber"`
	IsEmailVerified bool       `json:"isEmailVerified" db:"isemailverified"`
	IsPhoneVerified bool       `json:"isPhoneVerified" db:"isphoneverified"`
	Address         *string    `json:"address,omitempty" db:"address"`
	ProfilePicture  *string    `json:"profilePicture,omitempty" db:"profilepicture"`
	IsActive        bool       `json:"isActive" db:"isactive"`
	RefreshToken    *string    `json:"-" db:"refreshtoken"`
	Provider        string     `json:"provider" db:"provider"`
	Gender          *string    `json:"gender,omitempty" db:"gender"`
	CreatedAt       time.Time  `json:"createdAt" db:"createdat"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updatedat"`
}

// UserFilter narrows user listings. FirstName matches as a case-insensitive
// substring, everything else exactly.
type UserFilter struct {
	Email       string `form:"email" binding:"omitempty,email"`
	PhoneNumber string `form:"phoneNumber" binding:"omitempty,phone"`
	FirstName   string `form:"firstName" binding:"omitempty,min=2"`
	IsActive    *bool  `form:"isActive"`
	RoleID      *int64 `form:"roleId" binding:"omitempty,gt=0"`
	Gender      string `form:"gender" binding:"omitempty,oneof=male female other"`
}

// UserUpdate carries the columns a profile or account change may touch. Nil
// fields are left as they are.
type UserUpdate struct {
	FirstName       *string
	LastName        *string
	DateOfBirth     *time.Time
	Address         *string
	ProfilePicture  *string
	Gender          *string
	Password        *string
	IsEmailVerified *bool
	IsActive        *bool
	Provider        *string
}

func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.DateOfBirth == nil &&
		u.Address == nil && u.ProfilePicture == nil && u.Gender == nil &&
		u.Password == nil && u.IsEmailVerified == nil && u.IsActive == nil &&
		u.Provider == nil
}

type SignUpRequest struct {
	FirstName      string `json:"firstName" binding:"required,min=2,max=100"`
	LastName       string `json:"lastName" binding:"omitempty,min=2,max=100"`
	DateOfBirth    string `json:"dateOfBirth" binding:"omitempty,date"`
	Email          string `json:"email" binding:"required,email,max=100"`
	Password       string `json:"password" binding:"required,min=6"`
	PhoneNumber    string `json:"phoneNumber" binding:"omitempty,phone"`
	Address        string `json:"address" binding:"omitempty,max=200"`
	ProfilePicture string `json:"profilePicture" binding:"omitempty,url"`
	Gender         string `json:"gender" binding:"omitempty,oneof=male female other"`
}

type SignInRequest struct {
	EmailOrPhone string `json:"emailOrPhone" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type EmailOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,numeric"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	OTP      string `json:"otp" binding:"required,numeric"`
	Password string `json:"password" binding:"required,min=6"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type GoogleAuthRequest struct {
	GoogleToken string `json:"googleToken" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName      *string `json:"firstName" binding:"omitempty,min=2,max=100"`
	LastName       *string `json:"lastName" binding:"omitempty,min=2,max=100"`
	DateOfBirth    *string `json:"dateOfBirth" binding:"omitempty,date"`
	Address        *string `json:"address" binding:"omitempty,max=200"`
	ProfilePicture *string `json:"profilePicture" binding:"omitempty,url"`
	Gender         *string `json:"gender" binding:"omitempty,oneof=male female other"`
}

// AuthTokens is the pair returned by sign-in and Google sign-in.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
