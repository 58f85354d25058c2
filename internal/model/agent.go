package model

import "fmt"

// Well-known agent identities used in task conversation logs.
const (
	AgentOrchestrator = "orchestrator"
	AgentSystem       = "system"
	AgentUnnamed      = "agent"
)

// DefaultAgents is the roster used by orchestrate_agents when none is given.
var DefaultAgents = []string{"researcher", "analyst", "writer"}

// ValidateAgentName checks that an agent name conforms to the allowed format.
// Names must be 1-64 ASCII characters: alphanumeric, dots, hyphens,
// underscores, and @ signs.
func ValidateAgentName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("agent name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("agent name must be at most 64 characters")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') &&
			c != '.' && c != '-' && c != '_' && c != '@' {
			return fmt.Errorf("agent name contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
