package util

// Config holds runtime settings and flags.
type Config struct {
	DSN          string
	SettingsPath string
	WebBaseURL   string
	LocalBaseURL string
	Theme        string
	GridSpacing  float64 // sensor grid spacing in mm
}
