// Package httpserver runs the HTTP endpoints of the binaries: metrics,
// health and the dashboard API.
package httpserver

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// BindAddress represents a network address where a server can bind to listen
// for incoming connections.
//
// Valid address formats:
//   - "localhost:8080"
//   - "127.0.0.1:8080"
//   - "0.0.0.0:8080"
//   - ":8080" (binds to all interfaces)
//   - "[::1]:8080" (IPv6)
type BindAddress string

// NewBindAddress validates host:port form and a numeric port.
func NewBindAddress(value string) (BindAddress, error) {
	if value == "" {
		return "", errors.New("bind address must be non-empty")
	}

	_, port, err := net.SplitHostPort(value)
	if err != nil {
		return "", fmt.Errorf("invalid bind address format: %w", err)
	}

	if _, err = strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("port must be a number: %s", port)
	}

	return BindAddress(value), nil
}

// NewOptionalBindAddress is NewBindAddress that accepts an empty value,
// meaning the server is disabled.
func NewOptionalBindAddress(value string) (BindAddress, error) {
	if value == "" {
		return "", nil
	}
	return NewBindAddress(value)
}
