package model

import (
	"fmt"
	"strings"

	"github.com/shafin/minihub/internal/apperror"
)

// Validation bounds. These numbers are contract, not tuning knobs — tests
// pin the boundaries exactly.
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 20
	MaxRepoNameLength    = 100
	MaxDescriptionLength = 500
	MaxFilePathLength    = 1000
	MaxFileSize          = 10_000_000 // bytes

	maxEmailLength      = 254
	minEmailLength      = 5
	maxEmailLocalLength = 64
	maxEmailDomainLen   = 253
	minEmailDomainLen   = 3
)

// ValidateUsername enforces the 3-20 character rule.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	return nil
}

// ValidateEmail checks a non-empty email address: exactly one @, a local
// part of 1-64 characters, a dotted domain of 3-253 characters, and an
// overall length of 5-254. Callers skip it for absent emails.
func ValidateEmail(email string) error {
	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be between %d and %d characters", minEmailLength, maxEmailLength))
	}
	if strings.Count(email, "@") != 1 {
		return apperror.ValidationFailed("email", "email must contain exactly one @")
	}
	at := strings.Index(email, "@")
	local, domain := email[:at], email[at+1:]
	if len(local) == 0 || len(local) > maxEmailLocalLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email local part must be between 1 and %d characters", maxEmailLocalLength))
	}
	if len(domain) < minEmailDomainLen || len(domain) > maxEmailDomainLen {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email domain must be between %d and %d characters", minEmailDomainLen, maxEmailDomainLen))
	}
	if !strings.Contains(domain, ".") {
		return apperror.ValidationFailed("email", "email domain must contain a dot")
	}
	return nil
}

// ValidateRepoName enforces the 1-100 character rule.
func ValidateRepoName(name string) error {
	if len(name) < 1 || len(name) > MaxRepoNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("repository name must be between 1 and %d characters", MaxRepoNameLength))
	}
	return nil
}

// ValidateDescription enforces the 500 character cap. Empty is fine.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	return nil
}

// ValidateFilePath rejects traversal sequences and out-of-bounds lengths.
// A path that fails here never reaches the file map.
func ValidateFilePath(path string) error {
	if len(path) < 1 || len(path) > MaxFilePathLength {
		return apperror.ValidationFailed("path",
			fmt.Sprintf("file path must be between 1 and %d characters", MaxFilePathLength))
	}
	if strings.Contains(path, "../") || strings.Contains(path, `..\`) || strings.Contains(path, "~") {
		return apperror.ValidationFailed("path", "file path must not contain traversal sequences")
	}
	return nil
}
