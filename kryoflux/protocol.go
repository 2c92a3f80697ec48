package kryoflux

import (
	"fmt"
	"io"
)

// Command codes for the KryoFlux virtual COM port protocol: the device
// exposes the same command/ack shape as the Greaseweazle and SuperCard Pro
// adapters (write a short frame, read back a status byte) rather than a
// raw libusb bulk/control transfer.
const (
	CMD_SIDE      = 0x01
	CMD_SEEK      = 0x02
	CMD_MOTOR     = 0x03
	CMD_DENSITY   = 0x04
	CMD_MINTRACK  = 0x05
	CMD_MAXTRACK  = 0x06
	RequestStream = 0x07
)

const (
	KF_STATUS_OK = 0x00
)

// sendCommand writes a [cmd, len, params...] frame and validates the
// two-byte [command echo, status] response, the same ack shape
// greaseweazle.doCommand reads.
func (c *Client) sendCommand(cmd byte, params ...byte) error {
	packet := make([]byte, 2+len(params))
	packet[0] = cmd
	packet[1] = byte(len(params))
	copy(packet[2:], params)

	if _, err := c.port.Write(packet); err != nil {
		return fmt.Errorf("failed to write command 0x%02x: %w", cmd, err)
	}

	ack := make([]byte, 2)
	if _, err := io.ReadFull(c.port, ack); err != nil {
		return fmt.Errorf("failed to read ack for command 0x%02x: %w", cmd, err)
	}
	if ack[0] != cmd {
		return fmt.Errorf("command echo mismatch: sent 0x%02x, received 0x%02x", cmd, ack[0])
	}
	if ack[1] != KF_STATUS_OK {
		return fmt.Errorf("command 0x%02x failed with status 0x%02x", cmd, ack[1])
	}
	return nil
}

// configure sets the density and track range before a capture session;
// device is not sent to the hardware.
func (c *Client) configure(device, density, minTrack, maxTrack int) error {
	if err := c.sendCommand(CMD_DENSITY, byte(density)); err != nil {
		return err
	}
	if err := c.sendCommand(CMD_MINTRACK, byte(minTrack)); err != nil {
		return err
	}
	return c.sendCommand(CMD_MAXTRACK, byte(maxTrack))
}

// motorOn selects side, seeks to cyl and spins up the drive motor.
func (c *Client) motorOn(side, cyl int) error {
	if err := c.sendCommand(CMD_SIDE, byte(side)); err != nil {
		return err
	}
	if err := c.sendCommand(CMD_SEEK, byte(cyl)); err != nil {
		return err
	}
	return c.sendCommand(CMD_MOTOR, 1)
}

// motorOff spins down the drive motor.
func (c *Client) motorOff() error {
	return c.sendCommand(CMD_MOTOR, 0)
}

// streamOn arms the device to begin emitting raw stream bytes over the
// same serial connection used for commands.
func (c *Client) streamOn() error {
	return c.sendCommand(RequestStream, 1)
}

// controlIn issues a short control-plane request; used by captureStream to
// signal the device to stop streaming once the end marker has been seen.
func (c *Client) controlIn(request byte, value int, stop bool) error {
	if !stop {
		return nil
	}
	return c.sendCommand(request, byte(value))
}
