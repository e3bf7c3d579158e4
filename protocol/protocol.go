// Package protocol implements the minimal HTTP/1.1 client the device uses to
// talk to its backend: request building with streamed bodies, response
// decoding for chunked, length-delimited and close-delimited bodies, and flat
// JSON field extraction.
package protocol

import "time"

// Version represents the livi firmware version
const Version = "0.3.0"

// Protocol constants
const (
	BlockSize     = 1024 // Upload block size for streamed bodies
	RingSize      = 2048 // Receive ring buffer capacity
	StatusUnknown = -1   // Status before a status line has been parsed

	DefaultPollInterval = 2 * time.Millisecond // Wait between empty stream reads
	DefaultIdleTimeout  = 20 * time.Second     // Give up on a silent peer
)

// UserAgent is sent with every request
const UserAgent = "livi/" + Version
