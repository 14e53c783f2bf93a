package network

import (
	"fmt"
	"time"
)

// Config holds bridge configuration
type Config struct {
	// Address to bind; empty disables the bridge
	Address string

	// Path serving the websocket endpoint
	Path string

	// Connection limits
	MaxPeers int

	// Timing
	HandshakeTimeout  time.Duration
	ReadTimeout       time.Duration // idle limit, refreshed by every frame
	WriteTimeout      time.Duration
	PermissionTimeout time.Duration

	// Buffer sizes
	ReadBufferSize  int
	WriteBufferSize int
	SendQueueSize   int

	// Compression negotiates permessage-deflate with the client
	Compression bool
}

// DefaultConfig returns a disabled bridge with LAN-friendly limits
func DefaultConfig() Config {
	return Config{
		Address:           "",
		Path:              "/input",
		MaxPeers:          4,
		HandshakeTimeout:  5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Second,
		PermissionTimeout: 10 * time.Second,
		ReadBufferSize:    4 * 1024,
		WriteBufferSize:   4 * 1024,
		SendQueueSize:     16,
	}
}

// Enabled reports whether a listen address is configured
func (c Config) Enabled() bool { return c.Address != "" }

// Validate checks limits
func (c Config) Validate() error {
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("network: path %q must start with /", c.Path)
	}
	if c.MaxPeers <= 0 {
		return fmt.Errorf("network: max peers %d must be positive", c.MaxPeers)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("network: send queue %d must be positive", c.SendQueueSize)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.PermissionTimeout <= 0 {
		return fmt.Errorf("network: timeouts must be positive")
	}
	return nil
}
