package dwc2

import "github.com/ardnew/dwc2usb/pkg"

// DisableChannel halts ch if it is enabled and clears all of its pending
// interrupt bits. It must run before a channel is reprogrammed: a channel
// left mid-transfer would leak status bits into the next transfer.
func (c *Controller) DisableChannel(ch uint8) {
	char := chanChar(c.read(hcReg(ch, regHCCHAR)))
	if char&charEnable != 0 {
		c.write(hcReg(ch, regHCCHAR), uint32(char|charEnable|charDisable))
		if err := c.waitFor(channelHaltTimeout, func() bool {
			return chanInt(c.read(hcReg(ch, regHCINT)))&chHalted != 0
		}); err != nil {
			pkg.LogWarn(pkg.ComponentChannel, "channel did not halt", "channel", ch, "error", err)
		}
	}
	c.write(hcReg(ch, regHCINT), uint32(chAll))
}
