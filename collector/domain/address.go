package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Address of the daemon the device is attached to, in host:port form.
type Address string

// NewAddress validates host and port and joins them into an Address.
func NewAddress(host string, port int) (Address, error) {
	if len(host) == 0 {
		return "", errors.New("device host cannot be empty")
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("device port must be between 1 and 65535, got %d", port)
	}
	return Address(net.JoinHostPort(host, strconv.Itoa(port))), nil
}
