// Scheduler configuration re-exports.
//
// DESIGN: Scheduler config is defined in internal/scheduler/scheduler.go.
// This file re-exports it for use by the main Config struct.
package config

import "github.com/runeforge/hookgate/internal/scheduler"

// SchedulerConfig is an alias for scheduler.Config.
type SchedulerConfig = scheduler.Config
