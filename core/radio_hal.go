package core

import "context"

// Radio is the abstract network association (Wi-Fi) driver.
// Credentials and association details are owned by the implementation.
type Radio interface {
	// Connect associates with the network. Failure is logged, not fatal.
	Connect(ctx context.Context) error

	// Connected reports whether the link is currently up.
	Connected() bool
}
