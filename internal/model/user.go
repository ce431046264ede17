package model

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9А-Яа-я]{8,20}$`)
	phonePattern    = regexp.MustCompile(`^\+?\d{10,13}$`)
)

// User is a stored user record.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	BirthDate    Date
	Address      string
	PhoneNumber  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserResponse is the public view of a user. It never carries the password hash.
type UserResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	BirthDate   Date   `json:"birthDate" swaggertype:"string" format:"date"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

func (u User) Public() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		BirthDate:   u.BirthDate,
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
	}
}

// UserRequest is the payload for registration and full update.
type UserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	BirthDate   *Date  `json:"birthDate" swaggertype:"string" format:"date"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

// Validate checks field constraints. now is the reference for "in the past".
func (r UserRequest) Validate(now time.Time) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(0, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Match(passwordPattern).Error("must be 8 to 20 letters or digits")),
		validation.Field(&r.FirstName, validation.Required, validation.RuneLength(0, 100)),
		validation.Field(&r.LastName, validation.Required, validation.RuneLength(0, 100)),
		validation.Field(&r.BirthDate, validation.Required, validation.By(inThePast(now))),
		validation.Field(&r.Address, validation.RuneLength(0, 255)),
		validation.Field(&r.PhoneNumber, validation.Match(phonePattern).Error("must be 10 to 13 digits with an optional leading +")),
	)
}

// UserUpdateRequest is the payload for a partial update. A nil field is absent.
type UserUpdateRequest struct {
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	BirthDate   *Date   `json:"birthDate" swaggertype:"string" format:"date"`
	Address     *string `json:"address"`
	PhoneNumber *string `json:"phoneNumber"`
}

// Validate checks the constraints of the fields that are present.
func (r UserUpdateRequest) Validate(now time.Time) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Length(0, 255), is.Email),
		validation.Field(&r.Password, validation.Match(passwordPattern).Error("must be 8 to 20 letters or digits")),
		validation.Field(&r.FirstName, validation.RuneLength(0, 100)),
		validation.Field(&r.LastName, validation.RuneLength(0, 100)),
		validation.Field(&r.BirthDate, validation.By(inThePast(now))),
		validation.Field(&r.Address, validation.RuneLength(0, 255)),
		validation.Field(&r.PhoneNumber, validation.Match(phonePattern).Error("must be 10 to 13 digits with an optional leading +")),
	)
}

func inThePast(now time.Time) validation.RuleFunc {
	today := DateOf(now)
	return func(value interface{}) error {
		var d Date
		switch v := value.(type) {
		case *Date:
			if v == nil {
				return nil
			}
			d = *v
		case Date:
			d = v
		default:
			return nil
		}
		if d.IsZero() {
			return nil
		}
		if !d.Before(today) {
			return errors.New("must be a date in the past")
		}
		return nil
	}
}

// UserPage is a page of public user views.
type UserPage = Page[UserResponse]
