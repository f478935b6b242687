// Package sim is a register-level model of a DWC2 host core with a single
// device on its root port.
//
// [Core] implements [hal.MMIO] over a private register file and answers the
// accesses a polled host driver makes: identification, soft reset, FIFO
// flushes, the root port with its write-1-to-clear bits, eight host
// channels and the shared receive FIFO. Transactions are carried out
// against a packet-level [Device] when the driver first reads a channel's
// interrupt register after enabling it. [Clock] only advances when the
// driver delays, so every run is deterministic.
//
// [Pad] is a wired Xbox 360 style gamepad behind that contract. A
// [Scenario], usually loaded from YAML, describes the pad, injected faults
// and a timeline of input reports.
package sim
