// Package constants defines shared constants, types, and configuration values
// used throughout hashnav.
package constants

import (
	"os"
	"strconv"
)

// Development is the environment variable value for development mode.
const Development = "DEV"

// DebugEnvVar enables debug output from the router's internal logger when set.
const DebugEnvVar = "HASHNAV_DEBUG"

// ConfigPathEnvVar points at a TOML configuration file.
const ConfigPathEnvVar = "HASHNAV_CONFIG"

// LogPathEnvVar overrides the log file location.
const LogPathEnvVar = "HASHNAV_LOG_PATH"

// IsDevMode returns true if running in development mode (ENVIRONMENT=DEV).
func IsDevMode() bool {
	return os.Getenv("ENVIRONMENT") == Development
}

// Reserved route patterns.
const (
	RouteError    = "!"
	RouteNotFound = "*"
	RouteReserved = "$"
	RouteBootPage = "@boot-page"
)

// Navigation register keys the router itself reads.
const (
	RegisterReload    = "reload"
	RegisterKeepAlive = "keepAlive"
	RegisterBacktrack = "backtrack"
	RegisterFromBack  = "@router:backtrack"
	RegisterResume    = "resume"
)

// Application state labels.
const (
	StateIdle    = ""
	StateLoading = "Loading"
	StateWidgets = "Widgets"
	StatePages   = "Pages"
)

// NavKey represents an abstract navigation key, mapped from physical hardware.
type NavKey int

const (
	NavKeyUnassigned NavKey = iota
	NavKey0
	NavKey1
	NavKey2
	NavKey3
	NavKey4
	NavKey5
	NavKey6
	NavKey7
	NavKey8
	NavKey9
	NavKeyBack
)

func (k NavKey) GetName() string {
	switch {
	case k == NavKeyBack:
		return "Back"
	case k.IsDigit():
		return strconv.Itoa(k.Digit())
	default:
		return "Unassigned"
	}
}

// IsDigit reports whether k is one of the number keys.
func (k NavKey) IsDigit() bool {
	return k >= NavKey0 && k <= NavKey9
}

// Digit returns the numeric value of a number key, or -1.
func (k NavKey) Digit() int {
	if !k.IsDigit() {
		return -1
	}
	return int(k - NavKey0)
}
