package host

import "time"

// Control-transfer retry policy. Each packet of a control transfer is
// retried on NAK at most controlRetries times.
const (
	controlRetries = 100
	retryDelay     = 100 * time.Microsecond
)

// Enumeration constants.
const (
	// DeviceAddress is the address assigned to the single attached device.
	DeviceAddress = 1

	// DefaultMaxPacket0 is the control max-packet used before the device
	// descriptor has been read.
	DefaultMaxPacket0 = 8

	// probeLength is the device descriptor prefix that holds bMaxPacketSize0.
	probeLength = 8

	// configReadLength bounds the configuration descriptor read.
	configReadLength = 64

	// defaultConfiguration is selected when the configuration descriptor
	// does not name one.
	defaultConfiguration = 1

	// setAddressRecovery is the time a device may take to switch address
	// after the status stage of SET_ADDRESS.
	setAddressRecovery = 2 * time.Millisecond

	// maxStringLength is the largest string descriptor requested.
	maxStringLength = 255
)

// validMaxPacket0 lists the endpoint 0 max-packet sizes USB 2.0 allows.
var validMaxPacket0 = []uint16{8, 16, 32, 64}

// Configuration descriptor field offsets.
const configValueOffset = 5
