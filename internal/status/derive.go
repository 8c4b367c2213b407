// Package status derives the user-facing connection state from the external
// identity, document-store and calendar signals.
package status

// State is the derived connection state.
type State string

const (
	StateShowcase              State = "showcase"
	StateAuthenticating        State = "authenticating"
	StateConnected             State = "connected"
	StateConnectedServiceError State = "connected_service_error"
	StateAuthError             State = "auth_error"
	StateDisconnected          State = "disconnected"
)

// Signals is a snapshot of the external flags. The status package never
// owns these values; it only reads a copy.
type Signals struct {
	ShowcaseMode      bool `json:"showcase_mode"`
	GraphAuthLoading  bool `json:"graph_auth_loading"`
	GraphConnected    bool `json:"graph_connected"`
	GraphAuthError    bool `json:"graph_auth_error"`
	GraphServiceError bool `json:"graph_service_error"`
}

// Derive maps a snapshot to exactly one State. First match wins.
func Derive(s Signals) State {
	switch {
	case s.ShowcaseMode:
		return StateShowcase
	case s.GraphAuthLoading:
		return StateAuthenticating
	case s.GraphConnected && s.GraphServiceError:
		return StateConnectedServiceError
	case s.GraphConnected:
		return StateConnected
	case s.GraphAuthError:
		return StateAuthError
	default:
		return StateDisconnected
	}
}

// Label returns a short human-readable summary of the state.
func (s State) Label() string {
	switch s {
	case StateShowcase:
		return "Showcase mode (no backend)"
	case StateAuthenticating:
		return "Connecting to Microsoft 365"
	case StateConnected:
		return "Microsoft 365 connected"
	case StateConnectedServiceError:
		return "Connected, but some services are unavailable"
	case StateAuthError:
		return "Microsoft 365 connection failed"
	default:
		return "Not connected"
	}
}

// SyncAllowed reports whether the state permits talking to real services.
func (s State) SyncAllowed() bool {
	return s == StateConnected || s == StateConnectedServiceError
}
