package node

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/wire/transport"
)

// Config holds everything a cache node needs to run. Zero values fall back
// to the defaults during Validate.
type Config struct {
	// ID is the unique node identifier. It doubles as the write origin for
	// conflict resolution, so it must differ between nodes. Empty = random.
	ID string `json:"id" mapstructure:"id"`

	// BindAddr is the address the replication listener binds to
	BindAddr string `json:"bindAddr" mapstructure:"bind_addr"`

	// AdvertiseAddr is the address peers use to reach this node
	// (defaults to BindAddr)
	AdvertiseAddr string `json:"advertiseAddr" mapstructure:"advertise_addr"`

	// Seeds are addresses of known cluster members contacted at startup
	Seeds []string `json:"seeds" mapstructure:"seeds"`

	// Bootstrap requests a snapshot push from the seeds at startup so the
	// node starts warm instead of empty
	Bootstrap bool `json:"bootstrap" mapstructure:"bootstrap"`

	// LogLevel is the level at which logs will be output
	// (debug, info, warn, error)
	LogLevel string `json:"logLevel" mapstructure:"log_level"`

	// Engine settings

	CapacityBytes    int64   `json:"capacityBytes" mapstructure:"capacity_bytes"`
	SmallFraction    float64 `json:"smallFraction" mapstructure:"small_fraction"`
	GhostEntries     int     `json:"ghostEntries" mapstructure:"ghost_entries"`
	TombstoneEntries int     `json:"tombstoneEntries" mapstructure:"tombstone_entries"`
	NumShards        int     `json:"numShards" mapstructure:"num_shards"`

	// Subsystem settings

	Membership membership.Config `json:"membership" mapstructure:"membership"`
	Transport  transport.Config  `json:"transport" mapstructure:"transport"`
}

// DefaultConfig returns a config with recommended defaults and a random
// node id. BindAddr must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		ID:         "node-" + uuid.NewString()[:8],
		LogLevel:   "info",
		Membership: membership.DefaultConfig(),
		Transport:  transport.DefaultConfig(),
	}
}

// Validate fills defaults and checks the config for consistency
func (c *Config) Validate() error {
	if c.ID == "" {
		c.ID = "node-" + uuid.NewString()[:8]
	}
	if c.BindAddr == "" {
		return fmt.Errorf("bind address is required")
	}
	if c.AdvertiseAddr == "" {
		c.AdvertiseAddr = c.BindAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Membership == (membership.Config{}) {
		c.Membership = membership.DefaultConfig()
	}
	if err := c.Membership.Validate(); err != nil {
		return fmt.Errorf("membership config: %w", err)
	}
	for _, seed := range c.Seeds {
		if seed == "" {
			return fmt.Errorf("seed address must not be empty")
		}
	}
	if c.Bootstrap && len(c.Seeds) == 0 {
		return fmt.Errorf("bootstrap requires at least one seed")
	}
	return nil
}

// String returns a human readable multi-line summary, printed at startup
func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node %s\n", c.ID)
	fmt.Fprintf(&b, "  bind addr:      %s\n", c.BindAddr)
	fmt.Fprintf(&b, "  advertise addr: %s\n", c.AdvertiseAddr)
	fmt.Fprintf(&b, "  seeds:          %s\n", strings.Join(c.Seeds, ", "))
	fmt.Fprintf(&b, "  bootstrap:      %v\n", c.Bootstrap)
	fmt.Fprintf(&b, "  heartbeat:      %dms (suspect %dms, dead %dms)",
		c.Membership.HeartbeatIntervalMs, c.Membership.SuspectTimeoutMs, c.Membership.DeadTimeoutMs)
	return b.String()
}
