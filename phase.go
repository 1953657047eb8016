package lifecycle

import (
	"encoding/json"
	"fmt"
)

// Phase identifies when a hook runs relative to component creation and teardown.
type Phase int

const (
	// Activate hooks run during the one-shot activation pass over components
	// registered with an ActivationManager.
	Activate Phase = iota

	// PostConstruct hooks run synchronously when the container reports a
	// component as created. A failing hook aborts the creation.
	PostConstruct

	// PreDestroy hooks run during teardown, in reverse creation order.
	// Failures are recorded and never stop the teardown of other components.
	PreDestroy

	phaseCount
)

// Phases returns all valid phases in lifecycle order.
func Phases() []Phase {
	return []Phase{Activate, PostConstruct, PreDestroy}
}

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case Activate:
		return "Activate"
	case PostConstruct:
		return "PostConstruct"
	case PreDestroy:
		return "PreDestroy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// IsValid checks if the phase is one of the defined phases.
func (p Phase) IsValid() bool {
	return p >= Activate && p < phaseCount
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, PhaseError{Value: int(p)}
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Activate", "activate", "ACTIVATE":
		*p = Activate
	case "PostConstruct", "postConstruct", "post_construct", "POST_CONSTRUCT":
		*p = PostConstruct
	case "PreDestroy", "preDestroy", "pre_destroy", "PRE_DESTROY":
		*p = PreDestroy
	default:
		return PhaseError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Phase) MarshalJSON() ([]byte, error) {
	text, err := p.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return p.UnmarshalText([]byte(s))
}
