package host

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// Enumerate walks a freshly reset device to the configured state.
//
// The sequence probes the endpoint 0 max-packet from the first 8 bytes of
// the device descriptor, resets the port again, assigns [DeviceAddress],
// reads the full device descriptor and up to 64 bytes of the
// configuration, locates the interrupt IN endpoint and selects the
// configuration. Any failure leaves the device unenumerated.
func (h *Host) Enumerate() error {
	h.ctx.Enumerated = false
	pkg.LogDebug(pkg.ComponentEnum, "starting enumeration", "speed", h.ctx.Speed.String())

	var buf [configReadLength]byte

	// Probe bMaxPacketSize0 at the default address.
	n, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeDevice, 0, 0, probeLength), buf[:probeLength])
	if err != nil {
		return fmt.Errorf("probe device descriptor: %w", err)
	}
	if n < probeLength {
		return fmt.Errorf("probe device descriptor: %w: %d bytes", pkg.ErrMalformedDescriptor, n)
	}
	mps := uint16(buf[7])
	if !lo.Contains(validMaxPacket0, mps) {
		pkg.LogWarn(pkg.ComponentEnum, "invalid max packet size, using default",
			"maxPacket", mps, "default", DefaultMaxPacket0)
		mps = DefaultMaxPacket0
	}

	// Some devices only answer reliably after a second reset.
	if _, err := h.ResetPort(); err != nil {
		return fmt.Errorf("second reset: %w", err)
	}
	h.ctx.ControlMaxPacket = mps

	if _, err := h.ControlTransfer(hal.SetAddress(DeviceAddress), nil); err != nil {
		return fmt.Errorf("set address: %w", err)
	}
	h.ctx.Address = DeviceAddress
	h.clk.Delay(uint32(setAddressRecovery.Microseconds()))

	n, err = h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeDevice, 0, 0, hal.DeviceDescriptorSize), buf[:hal.DeviceDescriptorSize])
	if err != nil {
		return fmt.Errorf("read device descriptor: %w", err)
	}
	if !hal.ParseDeviceDescriptor(buf[:n], &h.ctx.Device) {
		return fmt.Errorf("read device descriptor: %w: %d bytes", pkg.ErrMalformedDescriptor, n)
	}
	pkg.LogInfo(pkg.ComponentEnum, "device descriptor",
		"vendor", fmt.Sprintf("%04x", h.ctx.Device.VendorID),
		"product", fmt.Sprintf("%04x", h.ctx.Device.ProductID),
		"maxPacket0", mps)

	n, err = h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeConfiguration, 0, 0, configReadLength), buf[:])
	if err != nil {
		return fmt.Errorf("read configuration descriptor: %w", err)
	}
	config := buf[:n]

	ep, err := FindInterruptIn(config)
	if err != nil {
		return fmt.Errorf("locate HID endpoint: %w", err)
	}
	h.ctx.HIDEndpoint = ep.Number()
	h.ctx.HIDMaxPacket = ep.MaxPacketSize

	value := configurationValue(config)
	if _, err := h.ControlTransfer(hal.SetConfiguration(value), nil); err != nil {
		return fmt.Errorf("set configuration %d: %w", value, err)
	}
	h.ctx.ConfigurationValue = value
	h.ctx.HIDToggle = hal.PIDData0
	h.ctx.Enumerated = true

	pkg.LogInfo(pkg.ComponentEnum, "device configured",
		"address", h.ctx.Address,
		"configuration", value,
		"endpoint", h.ctx.HIDEndpoint,
		"maxPacket", h.ctx.HIDMaxPacket)
	return nil
}

// configurationValue returns bConfigurationValue from a configuration
// descriptor, or the default when the buffer cannot supply one.
func configurationValue(config []byte) uint8 {
	if len(config) <= configValueOffset ||
		config[1] != hal.DescriptorTypeConfiguration ||
		config[configValueOffset] == 0 {
		return defaultConfiguration
	}
	return config[configValueOffset]
}

// ReadString reads string descriptor index in US English and returns it as
// ASCII. Index 0 names no string and returns "".
func (h *Host) ReadString(index uint8) (string, error) {
	if index == 0 {
		return "", nil
	}
	var buf [maxStringLength]byte
	n, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeString, index, hal.LangIDUSEnglish, maxStringLength), buf[:])
	if err != nil {
		return "", fmt.Errorf("read string %d: %w", index, err)
	}
	s, ok := hal.DecodeString(buf[:n])
	if !ok {
		return "", fmt.Errorf("read string %d: %w", index, pkg.ErrMalformedDescriptor)
	}
	return s, nil
}
