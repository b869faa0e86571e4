package enums

import "fmt"

// ActorType identifies who triggered a change.
type ActorType string

const (
	ActorBuyer  ActorType = "buyer"
	ActorVendor ActorType = "vendor"
	ActorAdmin  ActorType = "admin"
	ActorSystem ActorType = "system"
)

var validActorTypes = []ActorType{
	ActorBuyer,
	ActorVendor,
	ActorAdmin,
	ActorSystem,
}

// String implements fmt.Stringer.
func (a ActorType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorType.
func (a ActorType) IsValid() bool {
	for _, candidate := range validActorTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorType converts raw input into a ActorType.
func ParseActorType(value string) (ActorType, error) {
	for _, candidate := range validActorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor type %q", value)
}
