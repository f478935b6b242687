// Package pkg provides shared utilities for the dwc2usb host stack.
//
// This package contains common functionality used across the controller
// driver, the host protocol layers and the simulator, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for USB protocol and controller errors
//   - The [Outcome] of a single packet-level transfer
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentEnum, "device configured", "config", 1)
//
// Register-level traces are emitted at [LevelTrace].
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNAK) {
//	    // No new data this frame
//	}
package pkg
