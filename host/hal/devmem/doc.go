// Package devmem reaches real hardware from Linux user space.
//
// [Window] maps a physical register block through /dev/mem and implements
// [hal.MMIO]. [Mailbox] sends VideoCore property requests through /dev/vcio
// and implements [hal.PowerControl]. [Clock] is a monotonic [hal.Clock].
//
// Both device nodes require root, and /dev/mem additionally requires a
// kernel that does not restrict it to the first megabyte (iomem=relaxed or
// CONFIG_STRICT_DEVMEM off).
package devmem
