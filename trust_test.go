package smtpagent

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustFilter_ExactEquality(t *testing.T) {
	f, err := NewTrustFilter("127.0.0.1")
	require.NoError(t, err)

	tests := []struct {
		peer    string
		trusted bool
	}{
		{"127.0.0.1", true},
		{"::ffff:127.0.0.1", true}, // IPv4-in-IPv6 form of the same address
		{"127.0.0.2", false},       // near miss, same /8
		{"127.0.1.1", false},
		{"10.0.0.5", false},
		{"126.255.255.255", false},
		{"128.0.0.1", false},
		{"0.0.0.0", false},
		{"::1", false}, // IPv6 loopback is not the trusted IPv4 origin
	}
	for _, tt := range tests {
		peer := netip.MustParseAddr(tt.peer)
		assert.Equal(t, tt.trusted, f.IsTrusted(peer), "peer %s", tt.peer)
	}
}

func TestTrustFilter_NonLoopbackOrigin(t *testing.T) {
	f, err := NewTrustFilter("192.168.7.44")
	require.NoError(t, err)

	assert.True(t, f.IsTrusted(netip.MustParseAddr("192.168.7.44")))
	assert.False(t, f.IsTrusted(netip.MustParseAddr("192.168.7.45")))
	assert.False(t, f.IsTrusted(netip.MustParseAddr("127.0.0.1")))
}

func TestNewTrustFilter_InvalidOrigin(t *testing.T) {
	_, err := NewTrustFilter("not-an-address")
	assert.Error(t, err)

	_, err = NewTrustFilter("")
	assert.Error(t, err)
}
