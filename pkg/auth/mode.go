package auth

import (
	"fmt"
	"strings"
)

// Mode selects the credential backend used for every downstream call.
type Mode string

// Supported authentication modes.
const (
	ModeInteractive     Mode = "interactive"
	ModeServiceChainCLI Mode = "service-chain-cli"
	ModeServiceChainEnv Mode = "service-chain-env"
	ModeExternal        Mode = "external"
	ModeOnBehalfOf      Mode = "on-behalf-of"
)

// Modes lists every supported mode in display order.
func Modes() []Mode {
	return []Mode{ModeInteractive, ModeServiceChainCLI, ModeServiceChainEnv, ModeExternal, ModeOnBehalfOf}
}

// ParseMode maps a configuration string to a Mode. Matching is
// case-insensitive; an unrecognized value is a ConfigurationError.
func ParseMode(s string) (Mode, error) {
	normalized := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Modes() {
		if m == normalized {
			return m, nil
		}
	}
	return "", &ConfigurationError{
		Field:  "authentication",
		Reason: fmt.Sprintf("unknown mode %q (supported: %s)", s, joinModes()),
	}
}

// UsesRequestIdentity reports whether the mode derives its token from the
// inbound request rather than from the process.
func (m Mode) UsesRequestIdentity() bool {
	return m == ModeExternal || m == ModeOnBehalfOf
}

// RequiresUserToken reports whether every inbound request must carry a user
// bearer token.
func (m Mode) RequiresUserToken() bool {
	return m == ModeOnBehalfOf
}

func (m Mode) String() string {
	return string(m)
}

func joinModes() string {
	names := make([]string, 0, len(Modes()))
	for _, m := range Modes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
