package club

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// field limits, match column sizes
const (
	maxUsernameLen    = 100
	maxEmailLen       = 255
	maxUserRoleLen    = 50
	maxTitleLen       = 255
	maxDescriptionLen = 1000
	maxVenueLen       = 255
	maxMemberRoleLen  = 64
)

// DefaultUserRole is assigned when a user is created without a role
const DefaultUserRole = "MEMBER"

func required(field, value string, maxLen int) error {
	if value == "" {
		return validationf("%s must not be blank", field)
	}
	return limited(field, value, maxLen)
}

func limited(field, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return validationf("%s is too long, max %d characters", field, maxLen)
	}
	return nil
}

func validEmail(email string) error {
	if err := required("email", email, maxEmailLen); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || strings.ContainsAny(email, " <>") {
		return validationf("email %q is not a valid address", email)
	}
	return nil
}
