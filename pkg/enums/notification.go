package enums

import "fmt"

// NotificationKind classifies what happened to the referenced order.
type NotificationKind string

const (
	NotificationKindNewOrder      NotificationKind = "new-order"
	NotificationKindStatusChanged NotificationKind = "status-changed"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindNewOrder,
	NotificationKindStatusChanged,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
