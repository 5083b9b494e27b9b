package domain

import "fmt"

const minPasswordLength = 6

// ValidatePassword enforces the platform password policy. Registration may
// fall back to the document number as the initial password, so the check
// runs against the effective password, not only user-supplied ones.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}
