package config

const (
	// Time Related
	SecondsPerDay = 24 * 60 * 60 // one day in seconds
	DaysPerYear   = 365

	// Action Input Limits
	MaxMemoBytes = 256
)
