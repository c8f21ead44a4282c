package transport

// Config holds the socket level settings shared by transport implementations.
// The zero value is usable; DefaultConfig returns the recommended settings.
type Config struct {
	// TimeoutMs is the timeout for dialing and for a single write (0 = none)
	TimeoutMs int `json:"timeoutMs" mapstructure:"timeout_ms"`

	// MaxMessageSize rejects incoming frames larger than this many bytes
	// (0 = default 64 MB). Guards against corrupt length headers.
	MaxMessageSize int `json:"maxMessageSize" mapstructure:"max_message_size"`

	// TCP specific settings

	TCPNoDelay      bool `json:"tcpNoDelay" mapstructure:"tcp_nodelay"`
	TCPKeepAliveSec int  `json:"tcpKeepAliveSec" mapstructure:"tcp_keep_alive_sec"`
	ReadBufferSize  int  `json:"readBufferSize" mapstructure:"read_buffer_size"`
	WriteBufferSize int  `json:"writeBufferSize" mapstructure:"write_buffer_size"`
}

// DefaultConfig returns the recommended transport settings
func DefaultConfig() Config {
	return Config{
		TimeoutMs:       1000,
		MaxMessageSize:  64 << 20,
		TCPNoDelay:      true,
		TCPKeepAliveSec: 30,
	}
}
