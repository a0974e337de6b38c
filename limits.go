package smtpagent

import "time"

// Limits hold the per-connection limitations - payload size and deadlines
type Limits struct {
	ClientRead time.Duration // time limit for the single client payload read
	RelayWait  time.Duration // total time for the relay exchange
	MaxPayload int           // max relayed payload size in bytes
}

// DefaultLimits that are applied if you do not specify custom limits.
// Two minutes for the client payload and for the relay round trip, and
// 64 KiB of payload, matching the relay buffer of the original C layer.
//
// A zero deadline disables that deadline; the reference behavior (block
// forever on a silent peer) is therefore opt-in, never the default.
var DefaultLimits = Limits{
	ClientRead: 2 * time.Minute,
	RelayWait:  2 * time.Minute,
	MaxPayload: 64 * 1024,
}
