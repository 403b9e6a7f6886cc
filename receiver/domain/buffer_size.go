package domain

import "errors"

// BufferSize is the number of inbound messages a subscription may hold
// before the transport starts dropping them.
type BufferSize uint32

// NewBufferSize creates a new BufferSize instance.
func NewBufferSize(size int) (BufferSize, error) {
	if size <= 0 {
		return 0, errors.New("buffer size must be greater than 0")
	}

	return BufferSize(size), nil
}
