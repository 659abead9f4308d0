package security

import (
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const MinPasswordLength = 8

// Policy checks signup credentials: a standard email address and a password of at
// least eight characters with at least one letter and one digit.
type Policy struct {
	validate *validator.Validate
}

type credentialInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,password"`
}

func NewPolicy() *Policy {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongEnough(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("security: register password validation: %v", err))
	}

	return &Policy{validate: v}
}

// Check returns nil when both email and password satisfy the policy.
func (p *Policy) Check(email, password string) error {
	return p.validate.Struct(credentialInput{Email: email, Password: password})
}

// StrongEnough reports whether password has MinPasswordLength characters,
// at least one letter and at least one digit.
func StrongEnough(password string) bool {
	var letters, digits, total int

	for _, r := range password {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}

	return total >= MinPasswordLength && letters > 0 && digits > 0
}
