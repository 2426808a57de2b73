package printer

import (
	"fmt"
	"slices"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

// openSerial opens portName at baudRate, 8N1.
func openSerial(portName string, baudRate int, logger *zap.Logger) (Transport, error) {
	logger = logInternal.Or(logger).Named("serial")

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	if !slices.Contains(ports, portName) {
		// USB gadgets and pty pairs are not always enumerated; try anyway.
		logger.Warn("port not enumerated", zap.String("port", portName), zap.Strings("ports", ports))
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	logger.Debug("port opened", zap.String("port", portName), zap.Int("baud", baudRate))
	return NewRawTransport(port), nil
}
