package enums

import "fmt"

// ActorType records who triggered an order transition.
type ActorType string

const (
	ActorTypeBuyer  ActorType = "buyer"
	ActorTypeSeller ActorType = "seller"
	ActorTypeSystem ActorType = "system"
)

var validActorTypes = []ActorType{
	ActorTypeBuyer,
	ActorTypeSeller,
	ActorTypeSystem,
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

// ParseActorType converts raw input into an ActorType.
func ParseActorType(value string) (ActorType, error) {
	for _, candidate := range validActorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor type %q", value)
}
