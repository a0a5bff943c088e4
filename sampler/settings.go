package sampler

import "github.com/cobars/cobars/solver"

// Settings configures a Sampler's Newton solver. It embeds
// solver.Settings directly since the sampler introduces no additional
// configuration surface of its own.
type Settings struct {
	solver.Settings
}

// DefaultSettings returns the reference defaults (spec.md §6).
func DefaultSettings() Settings {
	return Settings{Settings: solver.DefaultSettings()}
}
