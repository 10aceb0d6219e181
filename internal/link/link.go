// Package link opens the serial ports used by the radio, GPS and camera.
package link

import (
	"bufio"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// RadioBaudRate is the air data rate of the telemetry radio pair
	RadioBaudRate = 57600
	// GPSBaudRate is the configured speed of the GPS receiver
	GPSBaudRate = 38400

	// DefaultReadTimeout bounds a single read so readers can observe
	// cancellation
	DefaultReadTimeout = 100 * time.Millisecond
)

// Port is the subset of serial.Port used by the node
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	Close() error
}

// Config describes a serial port
type Config struct {
	Device      string        `yaml:"device"`
	BaudRate    int           `yaml:"baudRate"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

// Open opens and configures a serial port as 8N1 with the configured read
// timeout. A read that times out returns zero bytes and no error.
func Open(cfg Config) (serial.Port, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Device, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", cfg.Device, err)
	}

	return port, nil
}

// Ports lists the serial devices present on the host
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}

// Writer buffers a whole frame so it goes out in a single write. Flush
// pushes the buffer to the port and waits until the bytes left the UART.
type Writer struct {
	mu   sync.Mutex
	port Port
	buf  *bufio.Writer
}

// NewWriter creates a new Writer sized for frames up to size bytes
func NewWriter(port Port, size int) *Writer {
	return &Writer{
		port: port,
		buf:  bufio.NewWriterSize(port, size),
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return err
	}
	if err := w.port.Drain(); err != nil {
		return fmt.Errorf("draining port: %w", err)
	}
	return nil
}
