package hal

import (
	"context"
	"fmt"
	"net"
)

// HostRadio treats the host network as the radio link: associating means the
// backend host name resolves.
type HostRadio struct {
	Host     string
	Resolver *net.Resolver

	up bool
}

// Connect implements core.Radio.
func (r *HostRadio) Connect(ctx context.Context) error {
	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	addrs, err := res.LookupHost(ctx, r.Host)
	if err != nil {
		r.up = false
		return fmt.Errorf("resolve %s: %w", r.Host, err)
	}
	r.up = len(addrs) > 0
	return nil
}

// Connected implements core.Radio.
func (r *HostRadio) Connected() bool {
	return r.up
}
