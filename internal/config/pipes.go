// Pipes configuration re-exports.
//
// DESIGN: Pipe configuration is defined in internal/pipes/config.go.
// This file re-exports those types for use by the main Config struct.
// This keeps pipe configuration close to pipe implementation while allowing
// the config package to use the types without circular imports.
package config

import "github.com/runeforge/hookgate/internal/pipes"

// =============================================================================
// RE-EXPORTS FROM pipes PACKAGE
// =============================================================================

// PipesConfig is an alias for pipes.Config for use in main Config struct.
type PipesConfig = pipes.Config

// NPCInteractionConfig is an alias for pipes.NPCInteractionConfig.
type NPCInteractionConfig = pipes.NPCInteractionConfig
