package manifest

import (
	"fmt"
	"strings"
)

// MissingArgumentsError reports every required argument a block invocation
// failed to supply, so the user sees the full list at once.
type MissingArgumentsError struct {
	Component string
	Keys      []string
}

func (e *MissingArgumentsError) Error() string {
	return fmt.Sprintf("component %q: missing required arguments: %s",
		e.Component, strings.Join(e.Keys, ", "))
}

// InvalidPropertyError reports a CSS custom property override the component
// does not support. It is distinguishable from argument errors.
type InvalidPropertyError struct {
	Component string
	Property  string
}

func (e *InvalidPropertyError) Error() string {
	return fmt.Sprintf("component %q: property %q invalid or not supported",
		e.Component, e.Property)
}

// ArgumentTypeError reports an argument whose value could not be converted
// to the declared input type.
type ArgumentTypeError struct {
	Component string
	Key       string
	Reason    string
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("component %q: argument %q: %s", e.Component, e.Key, e.Reason)
}
