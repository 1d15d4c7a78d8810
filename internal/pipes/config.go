// Pipes configuration - per-action pipe settings.
//
// DESIGN: Each action pipe can be switched off without unloading its content.
// A disabled pipe refuses every interaction before the busy guard.
//
// NOTE: This file defines pipe-specific configuration types.
// The main Config struct in config/ imports and uses these types.
package pipes

// =============================================================================
// PIPES CONFIG - Root configuration for all pipes
// =============================================================================

// Config contains configuration for all action pipes.
type Config struct {
	NPCInteraction NPCInteractionConfig `yaml:"npc_interaction"` // Player → NPC options
}

// Validate validates pipe configurations.
func (p *Config) Validate() error {
	return p.NPCInteraction.Validate()
}

// =============================================================================
// NPC INTERACTION PIPE CONFIG
// =============================================================================

// NPCInteractionConfig configures the NPC interaction pipe.
type NPCInteractionConfig struct {
	Enabled     bool `yaml:"enabled"`       // Enable this pipe
	HonorWalkTo bool `yaml:"honor_walk_to"` // Walk the player to the NPC before running walk_to hooks
}

// Validate validates the NPC interaction pipe config.
func (c *NPCInteractionConfig) Validate() error {
	return nil
}
