// Package timeouts defines the timeout and cadence constants shared by
// covey.town clients.
package timeouts

import "time"

// GRPCDial caps the wait when dialing the town record service, including
// the health check.
const GRPCDial = 2 * time.Second

// GRPCRequest caps a single town record request when the caller did not set
// an earlier deadline.
const GRPCRequest = 5 * time.Second

// DirectoryPoll is the refresh cadence for the public town directory.
const DirectoryPoll = 2 * time.Second

// RealtimeHandshake limits how long a real-time connector may take to accept
// a provider credential.
const RealtimeHandshake = 10 * time.Second

// Shutdown limits how long a command waits for telemetry to flush.
const Shutdown = 5 * time.Second
