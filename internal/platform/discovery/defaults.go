// Package discovery holds the default network addresses of the services a
// covey.town client talks to.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceTownRecord is the town record gRPC service identity.
	ServiceTownRecord = "townrecord"
	// ServiceRealtime is the real-time session provider identity.
	ServiceRealtime = "rtc"
)

// RealtimeSessionPath is the websocket path of the provider session endpoint.
const RealtimeSessionPath = "/session"

var grpcPorts = map[string]int{
	ServiceTownRecord: 8081,
}

var httpPorts = map[string]int{
	ServiceRealtime: 8082,
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcPorts)
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpPorts)
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

// OrDefaultWebsocketURL returns value when set, otherwise
// ws://<service-host:port><path>.
func OrDefaultWebsocketURL(value, service, path string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	addr := DefaultHTTPAddr(service)
	if addr == "" {
		return ""
	}
	return "ws://" + addr + path
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok || port <= 0 {
		return ""
	}
	return service + ":" + strconv.Itoa(port)
}
