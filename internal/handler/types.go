package handler

import "regexp"

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 8
	maxPasswordLength = 100
	maxContentLength  = 2000
)

var (
	usernameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	hasLetterRegex = regexp.MustCompile(`[a-zA-Z]`)
	hasDigitRegex  = regexp.MustCompile(`[0-9]`)
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Avatar   string `json:"avatar"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createMessageRequest struct {
	Content  string `json:"content" binding:"required"`
	Priority string `json:"priority"`
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
	Role     *string `json:"role"`
}

type banUserRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// validateUsername checks length and character set.
func validateUsername(username string) string {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return "Username must be between 3 and 30 characters"
	}
	if !usernameRegex.MatchString(username) {
		return "Username may contain only letters, digits, underscores and hyphens"
	}
	return ""
}

// validatePassword checks length and minimal complexity.
func validatePassword(password string) string {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return "Password must be between 8 and 100 characters"
	}
	if !hasLetterRegex.MatchString(password) || !hasDigitRegex.MatchString(password) {
		return "Password must contain at least one letter and one digit"
	}
	return ""
}
