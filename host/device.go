package host

import "github.com/ardnew/dwc2usb/host/hal"

// Context is the state of the single device on the root port.
//
// A Host owns exactly one Context. Callers read a copy through
// [Host.Context] between calls; only the host mutates it.
type Context struct {
	// Speed is the speed negotiated by the last port reset.
	Speed hal.Speed

	// Address is the device's bus address, 0 until enumerated.
	Address uint8

	// ControlMaxPacket is the endpoint 0 max-packet size.
	ControlMaxPacket uint16

	// HIDEndpoint and HIDMaxPacket locate the interrupt IN endpoint.
	HIDEndpoint  uint8
	HIDMaxPacket uint16

	// HIDToggle is the data PID expected on the next report.
	HIDToggle hal.PID

	// Enumerated is set once the device is configured.
	Enumerated bool

	// Device is the device descriptor read during enumeration.
	Device hal.DeviceDescriptor

	// ConfigurationValue is the configuration selected by enumeration.
	ConfigurationValue uint8
}

// reset returns the context to the state a freshly reset device is in.
// The negotiated speed is kept.
func (c *Context) reset() {
	speed := c.Speed
	*c = Context{
		Speed:            speed,
		ControlMaxPacket: DefaultMaxPacket0,
		HIDToggle:        hal.PIDData0,
	}
}

// controlRequest binds endpoint 0 of the device to the control channel.
func (c *Context) controlRequest(dir hal.Direction, pid hal.PID) hal.Request {
	return hal.Request{
		Channel:   hal.ChannelControl,
		Address:   c.Address,
		Endpoint:  0,
		Direction: dir,
		Type:      hal.EndpointControl,
		PID:       pid,
		MaxPacket: c.ControlMaxPacket,
		Speed:     c.Speed,
	}
}

// reportRequest binds the HID endpoint to the interrupt channel.
func (c *Context) reportRequest() hal.Request {
	return hal.Request{
		Channel:   hal.ChannelInterrupt,
		Address:   c.Address,
		Endpoint:  c.HIDEndpoint,
		Direction: hal.DirectionIn,
		Type:      hal.EndpointInterrupt,
		PID:       c.HIDToggle,
		MaxPacket: c.HIDMaxPacket,
		Speed:     c.Speed,
	}
}
