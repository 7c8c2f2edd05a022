package signup

import "regexp"

// Field keys for field-scoped validation errors, matching the form inputs.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

const (
	msgEmailRequired    = "Email is required"
	msgEmailInvalid     = "Enter a valid email"
	msgPasswordRequired = "Password is required"
	msgPasswordMinLen   = "Password must be at least 5 characters"
	msgConfirmRequired  = "Confirm Password is required"
	msgPasswordMismatch = "Passwords do not match"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks the signup input locally, with no side effects and no
// network. At most one message per field is returned, first violation wins.
// The password match rule only fires once every per-field rule passes.
func Validate(in Input) map[string]string {
	errs := make(map[string]string)

	switch {
	case in.Email == "":
		errs[FieldEmail] = msgEmailRequired
	case !emailPattern.MatchString(in.Email):
		errs[FieldEmail] = msgEmailInvalid
	}

	switch {
	case in.Password == "":
		errs[FieldPassword] = msgPasswordRequired
	case len(in.Password) < 5:
		errs[FieldPassword] = msgPasswordMinLen
	}

	if in.ConfirmPassword == "" {
		errs[FieldConfirmPassword] = msgConfirmRequired
	}

	if len(errs) == 0 && in.ConfirmPassword != in.Password {
		errs[FieldConfirmPassword] = msgPasswordMismatch
	}

	return errs
}
