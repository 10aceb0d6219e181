package actuator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/roman-kulish/skylink/internal/frame"
)

// RunCamBaudRate is the serial speed of the RunCam device protocol
const RunCamBaudRate = 115200

const (
	runCamHeader = 0xCC

	cmdReadInfo      = 0x00
	cmdCameraControl = 0x01

	actionStartRecording = 0x03
	actionStopRecording  = 0x04

	infoReplySize = 5

	// a serial port with a read timeout returns empty reads, give up after
	// this many in a row
	maxEmptyReads = 20
)

// RunCam feature flags reported by ReadInfo
const (
	FeaturePowerButton    uint16 = 1 << 0
	FeatureWiFiButton     uint16 = 1 << 1
	FeatureChangeMode     uint16 = 1 << 2
	FeatureStartRecording uint16 = 1 << 6
	FeatureStopRecording  uint16 = 1 << 7
)

var (
	ErrNoReply  = errors.New("camera did not reply")
	ErrBadReply = errors.New("malformed camera reply")
)

// CameraInfo is the reply to a camera information request
type CameraInfo struct {
	ProtocolVersion uint8
	Features        uint16
}

// Supports reports whether the camera advertises feature
func (i CameraInfo) Supports(feature uint16) bool {
	return i.Features&feature == feature
}

// RunCam drives a RunCam camera over its UART device protocol
type RunCam struct {
	mu   sync.Mutex
	port io.ReadWriter
}

func NewRunCam(port io.ReadWriter) *RunCam {
	return &RunCam{port: port}
}

func (c *RunCam) StartRecording() error {
	return c.control(actionStartRecording)
}

func (c *RunCam) StopRecording() error {
	return c.control(actionStopRecording)
}

// ReadInfo requests the protocol version and feature set of the camera
func (c *RunCam) ReadInfo() (CameraInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(cmdReadInfo); err != nil {
		return CameraInfo{}, err
	}

	var reply [infoReplySize]byte
	if err := readFull(c.port, reply[:]); err != nil {
		return CameraInfo{}, fmt.Errorf("reading camera info: %w", err)
	}

	if reply[0] != runCamHeader {
		return CameraInfo{}, fmt.Errorf("%w: header %#x", ErrBadReply, reply[0])
	}
	if want := frame.Checksum(reply[:infoReplySize-1]); reply[infoReplySize-1] != want {
		return CameraInfo{}, fmt.Errorf("%w: %w", ErrBadReply, frame.ErrChecksumMismatch)
	}

	return CameraInfo{
		ProtocolVersion: reply[1],
		Features:        binary.BigEndian.Uint16(reply[2:4]),
	}, nil
}

func (c *RunCam) control(action byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(cmdCameraControl, action)
}

func (c *RunCam) write(payload ...byte) error {
	data := make([]byte, 0, len(payload)+2)
	data = append(data, runCamHeader)
	data = append(data, payload...)
	data = append(data, frame.Checksum(data))

	if _, err := c.port.Write(data); err != nil {
		return fmt.Errorf("writing camera command: %w", err)
	}
	return nil
}

func readFull(r io.Reader, buf []byte) error {
	var n, empty int
	for n < len(buf) {
		nn, err := r.Read(buf[n:])
		n += nn
		if n == len(buf) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}

		if nn > 0 {
			empty = 0
			continue
		}

		empty++
		if empty >= maxEmptyReads {
			return ErrNoReply
		}
	}
	return nil
}
