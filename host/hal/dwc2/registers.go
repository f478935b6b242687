package dwc2

// Core global register offsets, relative to the controller base.
const (
	regGOTGCTL   uintptr = 0x000 // OTG control and status
	regGAHBCFG   uintptr = 0x008 // AHB configuration
	regGUSBCFG   uintptr = 0x00C // USB configuration
	regGRSTCTL   uintptr = 0x010 // Reset control
	regGINTSTS   uintptr = 0x014 // Core interrupt status
	regGINTMSK   uintptr = 0x018 // Core interrupt mask
	regGRXSTSR   uintptr = 0x01C // Receive status debug read
	regGRXSTSP   uintptr = 0x020 // Receive status read and pop
	regGRXFSIZ   uintptr = 0x024 // Receive FIFO size
	regGNPTXFSIZ uintptr = 0x028 // Non-periodic transmit FIFO size
	regGNPTXSTS  uintptr = 0x02C // Non-periodic transmit FIFO/queue status
	regGSNPSID   uintptr = 0x040 // Synopsys core ID
	regGHWCFG2   uintptr = 0x048 // Hardware configuration 2
	regHPTXFSIZ  uintptr = 0x100 // Host periodic transmit FIFO size
	regPCGCCTL   uintptr = 0xE00 // Power and clock gating control
)

// Host mode register offsets.
const (
	regHCFG     uintptr = 0x400 // Host configuration
	regHFIR     uintptr = 0x404 // Host frame interval
	regHFNUM    uintptr = 0x408 // Host frame number / time remaining
	regHPTXSTS  uintptr = 0x410 // Host periodic transmit FIFO/queue status
	regHAINT    uintptr = 0x414 // Host all channels interrupt
	regHAINTMSK uintptr = 0x418 // Host all channels interrupt mask
	regHPRT     uintptr = 0x440 // Host port control and status
)

// Host channel register block layout.
const (
	regHCBase   uintptr = 0x500 // First channel block
	hcStride    uintptr = 0x20  // Bytes per channel block
	regHCCHAR   uintptr = 0x00  // Channel characteristics
	regHCSPLT   uintptr = 0x04  // Channel split control
	regHCINT    uintptr = 0x08  // Channel interrupt status
	regHCINTMSK uintptr = 0x0C  // Channel interrupt mask
	regHCTSIZ   uintptr = 0x10  // Channel transfer size
	regHCDMA    uintptr = 0x14  // Channel DMA address
)

// Data FIFO windows. Each channel has a 4 KiB push/pop window.
const (
	fifoBase   uintptr = 0x1000
	fifoStride uintptr = 0x1000
)

// NumChannels is the number of host channels the driver initializes.
const NumChannels = 8

// Core identification.
const (
	coreIDMask      = 0xFFFF0000
	coreIDSignature = 0x4F540000 // "OT" in GSNPSID[31:16]
)

// FIFO RAM partition, in 32-bit words.
const (
	rxFIFOWords   = 256
	nptxFIFOWords = 256
	ptxFIFOWords  = 256
)

// Frame timing for a 48 MHz full-speed PHY clock.
const (
	hcfgFSLSClk48MHz = 1
	frameInterval48  = 48000
)

// ahbCfg is GAHBCFG.
type ahbCfg uint32

const (
	ahbGlobalIntr ahbCfg = 1 << 0
	ahbDMAEnable  ahbCfg = 1 << 5
)

// usbCfg is GUSBCFG.
type usbCfg uint32

const (
	usbPHYIf16      usbCfg = 1 << 3
	usbULPISelect   usbCfg = 1 << 4
	usbPHYSelect    usbCfg = 1 << 6
	usbForceHost    usbCfg = 1 << 29
	usbForceDevice  usbCfg = 1 << 30
	usbPHYWidthMask        = usbPHYIf16 | usbULPISelect
)

// resetCtl is GRSTCTL.
type resetCtl uint32

const (
	rstCoreSoft    resetCtl = 1 << 0
	rstRxFlush     resetCtl = 1 << 4
	rstTxFlush     resetCtl = 1 << 5
	rstTxFIFOAll   resetCtl = 0x10 << 6 // TxFNum = all transmit FIFOs
	rstAHBIdle     resetCtl = 1 << 31
	rstTxFNumShift          = 6
)

// coreInt is GINTSTS / GINTMSK.
type coreInt uint32

const (
	intCurrentModeHost coreInt = 1 << 0
	intSOF             coreInt = 1 << 3
	intRxFIFOLevel     coreInt = 1 << 4
	intPort            coreInt = 1 << 24
	intChannel         coreInt = 1 << 25
)

// rxStatus is a GRXSTSP entry.
type rxStatus uint32

// Receive status packet states (GRXSTSP[20:17]).
const (
	rxPktInData       = 2 // IN data packet received
	rxPktInComplete   = 3 // IN transfer completed
	rxPktToggleError  = 5 // Data toggle error
	rxPktChannelHalt  = 7 // Channel halted
	rxStatusDrainSize = 8 // Maximum entries drained per IN completion
)

func (s rxStatus) channel() uint8    { return uint8(s & 0xF) }
func (s rxStatus) byteCount() int    { return int(s>>4) & 0x7FF }
func (s rxStatus) packetStatus() int { return int(s>>17) & 0xF }

// portFlags is HPRT.
type portFlags uint32

const (
	portConnect            portFlags = 1 << 0  // PrtConnSts (RO)
	portConnectChanged     portFlags = 1 << 1  // PrtConnDet (W1C)
	portEnable             portFlags = 1 << 2  // PrtEna (W1C: writing 1 disables)
	portEnableChanged      portFlags = 1 << 3  // PrtEnChng (W1C)
	portOverCurrent        portFlags = 1 << 4  // PrtOvrCurrAct (RO)
	portOverCurrentChanged portFlags = 1 << 5  // PrtOvrCurrChng (W1C)
	portResume             portFlags = 1 << 6  // PrtRes
	portSuspend            portFlags = 1 << 7  // PrtSusp
	portReset              portFlags = 1 << 8  // PrtRst
	portPower              portFlags = 1 << 12 // PrtPwr
	portSpeedShift                   = 17
	portSpeedMask          portFlags = 3 << portSpeedShift

	// portW1C collects every bit that clears when written as one.
	portW1C = portConnectChanged | portEnable | portEnableChanged | portOverCurrentChanged

	// portChanges are the status-change bits safe to acknowledge.
	portChanges = portConnectChanged | portEnableChanged | portOverCurrentChanged
)

// Port speed field values (HPRT[18:17]).
const (
	portSpeedHigh = 0
	portSpeedFull = 1
	portSpeedLow  = 2
)

// chanChar is HCCHARn.
type chanChar uint32

const (
	charMaxPacketMask chanChar = 0x7FF
	charEndpointShift          = 11
	charDirIn         chanChar = 1 << 15
	charLowSpeed      chanChar = 1 << 17
	charTypeShift              = 18
	charMultiCntShift          = 20
	charAddressShift           = 22
	charOddFrame      chanChar = 1 << 29
	charDisable       chanChar = 1 << 30
	charEnable        chanChar = 1 << 31
)

// chanInt is HCINTn / HCINTMSKn.
type chanInt uint32

const (
	chXferComplete chanInt = 1 << 0
	chHalted       chanInt = 1 << 1
	chAHBError     chanInt = 1 << 2
	chStall        chanInt = 1 << 3
	chNak          chanInt = 1 << 4
	chAck          chanInt = 1 << 5
	chNyet         chanInt = 1 << 6
	chXactError    chanInt = 1 << 7
	chBabble       chanInt = 1 << 8
	chFrameOverrun chanInt = 1 << 9
	chToggleError  chanInt = 1 << 10

	chErrors   = chAHBError | chXactError | chBabble | chFrameOverrun | chToggleError
	chTerminal = chXferComplete | chHalted | chStall | chNak | chErrors
	chAll      = chanInt(0x7FF)
)

// chanSize is HCTSIZn.
type chanSize uint32

const (
	sizeXferMask      chanSize = 0x7FFFF
	sizePacketShift            = 19
	sizePacketMask    chanSize = 0x3FF << sizePacketShift
	sizePIDShift               = 29
	sizeDoPing        chanSize = 1 << 31
	pidHardwareData0           = 0
	pidHardwareData2           = 1
	pidHardwareData1           = 2
	pidHardwareSetup           = 3
)

// fifoStatus is GNPTXSTS / HPTXSTS.
type fifoStatus uint32

// spaceWords returns the free transmit FIFO space in words.
func (s fifoStatus) spaceWords() int { return int(s & 0xFFFF) }

// Channel register addresses.
func hcReg(ch uint8, reg uintptr) uintptr { return regHCBase + uintptr(ch)*hcStride + reg }

// FIFO window address for a channel.
func fifoReg(ch uint8) uintptr { return fifoBase + uintptr(ch)*fifoStride }
