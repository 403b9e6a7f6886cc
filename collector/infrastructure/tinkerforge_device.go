package infrastructure

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	collectorDomain "github.com/samoilenko/sensor_telemetry/collector/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/reading"
)

// Analog In Bricklet 3.0 specifics.
const (
	analogInV3DeviceIdentifier = 295
	analogInV3GetVoltage       = 1
	analogInV3Field            = "value"
)

// TinkerforgeDevice reads the voltage of an Analog In Bricklet 3.0 through
// a brick daemon. The sample has one field, "value", in millivolts.
type TinkerforgeDevice struct {
	mu      sync.Mutex
	address collectorDomain.Address
	uid     collectorDomain.DeviceUID
	rawUID  uint32
	conn    *tfpConn
	logger  collectorDomain.Logger
}

// Connect dials the brick daemon and checks that the uid belongs to an
// Analog In Bricklet 3.0. Any failure here is reported as not-found.
func (d *TinkerforgeDevice) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := dialTFP(ctx, string(d.address))
	if err != nil {
		return &collectorDomain.DeviceError{
			Kind: collectorDomain.DeviceNotFound,
			Err:  fmt.Errorf("cannot connect to brick daemon at %s: %w", d.address, err),
		}
	}

	identity, err := conn.identity(ctx, d.rawUID)
	if err != nil {
		_ = conn.Close()
		return &collectorDomain.DeviceError{
			Kind: collectorDomain.DeviceNotFound,
			Err:  fmt.Errorf("no device with uid %s at %s: %w", d.uid, d.address, err),
		}
	}
	if identity.DeviceIdentifier != analogInV3DeviceIdentifier {
		_ = conn.Close()
		return &collectorDomain.DeviceError{
			Kind: collectorDomain.DeviceNotFound,
			Err: fmt.Errorf("device %s is not an Analog In Bricklet 3.0 (identifier %d)",
				d.uid, identity.DeviceIdentifier),
		}
	}

	d.logger.Info("connected to Analog In Bricklet 3.0 %s at %s, firmware %d.%d.%d",
		identity.UID, d.address,
		identity.FirmwareVersion[0], identity.FirmwareVersion[1], identity.FirmwareVersion[2],
	)
	d.conn = conn
	return nil
}

// ReadOne returns the current voltage. A broken connection is redialed on
// the next call.
func (d *TinkerforgeDevice) ReadOne(ctx context.Context) ([]reading.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		conn, err := dialTFP(ctx, string(d.address))
		if err != nil {
			return nil, &collectorDomain.DeviceError{Kind: collectorDomain.DeviceIO, Err: err}
		}
		d.logger.Info("reconnected to brick daemon at %s", d.address)
		d.conn = conn
	}

	body, err := d.conn.call(ctx, d.rawUID, analogInV3GetVoltage, nil, 2)
	if err != nil {
		_ = d.conn.Close()
		d.conn = nil
		if ctx.Err() != nil || isDeadline(err) {
			return nil, &collectorDomain.DeviceError{Kind: collectorDomain.DeviceTimeout, Err: err}
		}
		if errors.Is(err, errTFPShortPacket) {
			return nil, &collectorDomain.DeviceError{Kind: collectorDomain.DeviceMalformed, Err: err}
		}
		return nil, &collectorDomain.DeviceError{Kind: collectorDomain.DeviceIO, Err: err}
	}

	voltage := binary.LittleEndian.Uint16(body)
	return []reading.Field{{Name: analogInV3Field, Value: float64(voltage)}}, nil
}

// Schema is always the single "value" field.
func (d *TinkerforgeDevice) Schema() reading.Schema {
	return reading.Schema{analogInV3Field}
}

// Close disconnects from the brick daemon.
func (d *TinkerforgeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// NewTinkerforgeDevice validates the uid. Call Connect before the first read.
func NewTinkerforgeDevice(
	address collectorDomain.Address,
	uid collectorDomain.DeviceUID,
	logger collectorDomain.Logger,
) (*TinkerforgeDevice, error) {
	rawUID, err := decodeTFPUID(string(uid))
	if err != nil {
		return nil, err
	}
	return &TinkerforgeDevice{
		address: address,
		uid:     uid,
		rawUID:  rawUID,
		logger:  logger,
	}, nil
}
