package membership

import "fmt"

// Config holds the failure detection timing. All values are wall-clock
// durations in milliseconds.
type Config struct {
	// HeartbeatIntervalMs is how often the node announces itself to peers
	HeartbeatIntervalMs int `json:"heartbeatIntervalMs" mapstructure:"heartbeat_interval_ms"`

	// SuspectTimeoutMs marks a peer Suspect after this much silence
	SuspectTimeoutMs int `json:"suspectTimeoutMs" mapstructure:"suspect_timeout_ms"`

	// DeadTimeoutMs marks a peer Dead after this much silence
	DeadTimeoutMs int `json:"deadTimeoutMs" mapstructure:"dead_timeout_ms"`

	// DeadRetentionMs forgets a peer after it has been Dead this long
	DeadRetentionMs int `json:"deadRetentionMs" mapstructure:"dead_retention_ms"`
}

// DefaultConfig returns the recommended failure detection timing
func DefaultConfig() Config {
	return Config{
		HeartbeatIntervalMs: 1000,
		SuspectTimeoutMs:    3000,
		DeadTimeoutMs:       10000,
		DeadRetentionMs:     60000,
	}
}

// Validate checks that the timing values are consistent
func (c Config) Validate() error {
	if c.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %d", c.HeartbeatIntervalMs)
	}
	if c.SuspectTimeoutMs <= c.HeartbeatIntervalMs {
		return fmt.Errorf("suspect timeout (%d ms) must exceed the heartbeat interval (%d ms)",
			c.SuspectTimeoutMs, c.HeartbeatIntervalMs)
	}
	if c.DeadTimeoutMs <= c.SuspectTimeoutMs {
		return fmt.Errorf("dead timeout (%d ms) must exceed the suspect timeout (%d ms)",
			c.DeadTimeoutMs, c.SuspectTimeoutMs)
	}
	if c.DeadRetentionMs < 0 {
		return fmt.Errorf("dead retention must not be negative, got %d", c.DeadRetentionMs)
	}
	return nil
}
