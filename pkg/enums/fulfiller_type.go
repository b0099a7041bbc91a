package enums

import "fmt"

// FulfillerType identifies the kind of entity an order can be bound to.
type FulfillerType string

const (
	FulfillerTypeTruckOwner FulfillerType = "truck_owner"
)

var validFulfillerTypes = []FulfillerType{
	FulfillerTypeTruckOwner,
}

// String implements fmt.Stringer.
func (f FulfillerType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillerType.
func (f FulfillerType) IsValid() bool {
	for _, candidate := range validFulfillerTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillerType converts raw input into a FulfillerType.
func ParseFulfillerType(value string) (FulfillerType, error) {
	for _, candidate := range validFulfillerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfiller type %q", value)
}
