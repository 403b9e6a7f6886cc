package domain

import (
	"errors"
	"strings"
)

// DeviceUID identifies the device a collector run is bound to.
type DeviceUID string

// NewDeviceUID validates the given string and returns it as a DeviceUID.
// It returns an error if the uid is empty or contains separators that
// would break a log row.
func NewDeviceUID(uid string) (DeviceUID, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", errors.New("device uid cannot be empty")
	}
	if strings.ContainsAny(uid, ",\"\r\n") {
		return "", errors.New("device uid cannot contain commas, quotes or line breaks")
	}

	return DeviceUID(uid), nil
}
