package users

import (
	"strings"

	"csv-json-stream/common"
)

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MinPasswordLength is enforced on registration
const MinPasswordLength = 8

// ValidateRegistration validates a registration request
func ValidateRegistration(req CredentialsRequest) *common.ValidationResult {
	result := common.NewValidationResult()

	email := strings.TrimSpace(req.Email)
	if email == "" {
		result.AddError("email", "Email is required")
	} else if !common.ValidateEmail(email) {
		result.AddError("email", "Invalid email format")
	}

	if err := common.ValidateRequired("password", req.Password); err != nil {
		result.Add(err)
	} else {
		result.Add(common.ValidateMinLength("password", req.Password, MinPasswordLength))
	}

	return result
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
