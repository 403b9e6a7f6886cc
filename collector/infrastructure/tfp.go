package infrastructure

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strings"
	"sync"
	"time"
)

// Tinkerforge protocol constants used by the collector.
const (
	tfpHeaderSize         = 8
	tfpFunctionIdentity   = 255
	tfpIdentityPayload    = 25
	tfpBase58Alphabet     = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	tfpResponseExpected   = 1 << 3
	tfpErrorInvalidParam  = 1
	tfpErrorNotSupported  = 2
	tfpMaxSequence        = 15
	tfpDefaultDialTimeout = 2 * time.Second
)

var errTFPShortPacket = errors.New("short packet")

// tfpIdentity is the answer to the identity call every brick and bricklet supports.
type tfpIdentity struct {
	UID              string
	ConnectedUID     string
	Position         byte
	HardwareVersion  [3]uint8
	FirmwareVersion  [3]uint8
	DeviceIdentifier uint16
}

// tfpConn is a request/response connection to a brick daemon. Calls are
// serialized; callbacks and stale responses are skipped.
type tfpConn struct {
	mu   sync.Mutex
	conn net.Conn
	seq  uint8
}

func dialTFP(ctx context.Context, addr string) (*tfpConn, error) {
	dialer := net.Dialer{Timeout: tfpDefaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tfpConn{conn: conn}, nil
}

func (c *tfpConn) Close() error {
	return c.conn.Close()
}

// call sends one request and waits for the matching response payload.
func (c *tfpConn) call(ctx context.Context, uid uint32, functionID uint8, payload []byte, responseSize int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	c.seq = c.seq%tfpMaxSequence + 1
	request := make([]byte, tfpHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(request[0:4], uid)
	request[4] = uint8(len(request))
	request[5] = functionID
	request[6] = c.seq<<4 | tfpResponseExpected
	copy(request[tfpHeaderSize:], payload)

	if _, err := c.conn.Write(request); err != nil {
		return nil, c.wrap(ctx, err)
	}

	for {
		header := make([]byte, tfpHeaderSize)
		if _, err := io.ReadFull(c.conn, header); err != nil {
			return nil, c.wrap(ctx, err)
		}
		length := int(header[4])
		if length < tfpHeaderSize {
			return nil, fmt.Errorf("invalid packet length %d", length)
		}
		body := make([]byte, length-tfpHeaderSize)
		if _, err := io.ReadFull(c.conn, body); err != nil {
			return nil, c.wrap(ctx, err)
		}

		seq := header[6] >> 4
		if binary.LittleEndian.Uint32(header[0:4]) != uid || header[5] != functionID || seq != c.seq {
			continue
		}

		switch header[7] >> 6 {
		case 0:
		case tfpErrorInvalidParam:
			return nil, errors.New("device rejected the request parameters")
		case tfpErrorNotSupported:
			return nil, errors.New("function not supported by the device")
		default:
			return nil, fmt.Errorf("device returned error code %d", header[7]>>6)
		}

		if len(body) < responseSize {
			return nil, errTFPShortPacket
		}
		return body[:responseSize], nil
	}
}

// wrap reports deadline hits as context.DeadlineExceeded.
func (c *tfpConn) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s", ctxErr, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, err.Error())
	}
	return err
}

func (c *tfpConn) identity(ctx context.Context, uid uint32) (tfpIdentity, error) {
	body, err := c.call(ctx, uid, tfpFunctionIdentity, nil, tfpIdentityPayload)
	if err != nil {
		return tfpIdentity{}, err
	}

	var id tfpIdentity
	id.UID = strings.TrimRight(string(body[0:8]), "\x00")
	id.ConnectedUID = strings.TrimRight(string(body[8:16]), "\x00")
	id.Position = body[16]
	copy(id.HardwareVersion[:], body[17:20])
	copy(id.FirmwareVersion[:], body[20:23])
	id.DeviceIdentifier = binary.LittleEndian.Uint16(body[23:25])
	return id, nil
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// decodeTFPUID converts a base58 uid such as "27eU" into its numeric form.
func decodeTFPUID(raw string) (uint32, error) {
	if raw == "" {
		return 0, errors.New("empty uid")
	}

	var value uint64
	for _, r := range raw {
		digit := strings.IndexRune(tfpBase58Alphabet, r)
		if digit < 0 {
			return 0, fmt.Errorf("invalid character %q in uid %q", r, raw)
		}
		if value > (math.MaxUint64-uint64(digit))/58 {
			return 0, fmt.Errorf("uid %q is too long", raw)
		}
		value = value*58 + uint64(digit)
	}

	if value <= 0xFFFFFFFF {
		return uint32(value), nil
	}

	// 64 bit uids are folded into 32 bits the way the brick daemon does it.
	value1 := uint32(value & 0xFFFFFFFF)
	value2 := uint32(value >> 32)
	uid := value1 & 0x00000FFF
	uid |= (value1 & 0x0F000000) >> 12
	uid |= (value2 & 0x0000003F) << 16
	uid |= (value2 & 0x000F0000) << 6
	uid |= (value2 & 0x3F000000) << 2
	return uid, nil
}
