package enums

import "fmt"

// CartStatus tracks a cart's lifecycle. Processed is terminal and is only
// ever set by a successful checkout.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusPaid      CartStatus = "paid"
	CartStatusCancelled CartStatus = "cancelled"
	CartStatusProcessed CartStatus = "processed"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusPaid,
	CartStatusCancelled,
	CartStatusProcessed,
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
