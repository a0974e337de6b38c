package smtpagent

import (
	"fmt"
	"net/netip"
)

// TrustFilter admits connections from exactly one origin address. There is
// deliberately no subnet or prefix matching: the agent fronts an internal
// mail service and trusts a single known peer, nothing else.
type TrustFilter struct {
	trusted netip.Addr
}

// NewTrustFilter parses the trusted origin address. IPv4-in-IPv6 forms are
// normalized so that "::ffff:127.0.0.1" and "127.0.0.1" compare equal.
func NewTrustFilter(origin string) (*TrustFilter, error) {
	addr, err := netip.ParseAddr(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted origin %q: %w", origin, err)
	}
	return &TrustFilter{trusted: addr.Unmap()}, nil
}

// IsTrusted reports whether peer is the configured trusted origin. Pure
// exact-equality comparison, no I/O, safe for concurrent use.
func (f *TrustFilter) IsTrusted(peer netip.Addr) bool {
	return peer.Unmap() == f.trusted
}

// Trusted returns the configured origin, for the startup banner.
func (f *TrustFilter) Trusted() netip.Addr {
	return f.trusted
}
