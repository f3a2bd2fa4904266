package affixcore

import "github.com/xyproto/env/v2"

// Config holds the environment-driven knobs the CLI façade and the
// Controller read at startup. Nothing here is required: every field has
// a usable default, following env/v2's read-with-default style rather
// than fail-if-missing.
type Config struct {
	// TargetProcessName is the executable name cmd/affixcore looks up
	// when no explicit -pid is given; Attach itself takes a PID only.
	TargetProcessName string

	// WeaponPattern and ArmorPattern override the built-in capture AOBs,
	// for use against a game build whose byte sequences have shifted.
	WeaponPattern string
	ArmorPattern  string

	// Verbose flips internal/asmgen's Verbose flag on New, tracing every
	// emitted trampoline instruction to stderr as hex.
	Verbose bool
}

const (
	defaultTargetProcessName = "nioh3.exe"
	defaultWeaponPattern     = "48 8B D5 49 8B CA E8 ?? ?? ?? ?? 48 8B 86 ?? ?? ?? ?? 48 8D 8E ?? ?? ?? ??"
	defaultArmorPattern      = "49 8D 8C 24 ?? ?? ?? ?? 48 8B D3 E8 ?? ?? ?? ?? 8A 45 6F 8A 4D 67"
)

// ConfigFromEnv builds a Config from the process environment:
//   - AFFIXCORE_TARGET_PROCESS (string, default "nioh3.exe")
//   - AFFIXCORE_WEAPON_PATTERN / AFFIXCORE_ARMOR_PATTERN (string overrides)
//   - AFFIXCORE_VERBOSE (bool, default false)
func ConfigFromEnv() Config {
	return Config{
		TargetProcessName: env.Str("AFFIXCORE_TARGET_PROCESS", defaultTargetProcessName),
		WeaponPattern:     env.Str("AFFIXCORE_WEAPON_PATTERN", defaultWeaponPattern),
		ArmorPattern:      env.Str("AFFIXCORE_ARMOR_PATTERN", defaultArmorPattern),
		Verbose:           env.Bool("AFFIXCORE_VERBOSE"),
	}
}
