// Package hwaccel detects AES hardware acceleration support and reports it
// through internal/metrics, grounded on the teacher's internal/crypto/
// hardware.go (golang.org/x/sys/cpu feature detection gated by
// config.HardwareConfig flags) — the detection logic carries over verbatim
// since ctcrypto's AES-256-XTS runs on the same crypto/aes primitives the
// teacher's engine did; only the reporting surface (a metrics gauge instead
// of an HTTP status field) is new.
package hwaccel

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/kenneth/cyphertite-go/internal/config"
)

// HasAESHardwareSupport reports whether the running CPU has AES
// instructions available, independent of whether config allows using them.
func HasAESHardwareSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// IsHardwareAccelerationEnabled reports whether hardware acceleration is
// both supported by the CPU and allowed by cfg.
func IsHardwareAccelerationEnabled(cfg config.HardwareConfig) bool {
	if !HasAESHardwareSupport() {
		return false
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		return cfg.EnableAESNI
	case "arm64":
		return cfg.EnableARMv8AES
	default:
		return true
	}
}

// Info returns a diagnostics-friendly summary of AES hardware support and
// the configured acceleration settings.
func Info(cfg *config.HardwareConfig) map[string]interface{} {
	info := map[string]interface{}{
		"aes_hardware_support": HasAESHardwareSupport(),
		"architecture":         runtime.GOARCH,
		"goos":                 runtime.GOOS,
		"go_version":           runtime.Version(),
	}

	if cfg != nil {
		info["aes_ni_enabled"] = cfg.EnableAESNI
		info["armv8_aes_enabled"] = cfg.EnableARMv8AES
		info["hardware_acceleration_active"] = IsHardwareAccelerationEnabled(*cfg)
	}

	return info
}
