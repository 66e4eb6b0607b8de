package ctcrypto

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HasAESHardwareSupport reports whether the running CPU exposes an AES
// instruction set Go's crypto/aes will use automatically, adapted from the
// teacher's crypto.HasAESHardwareSupport (internal/crypto/hardware.go).
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

// HardwareAccelerationInfo reports diagnostic detail about AES acceleration
// as a map suitable for logging or a diagnostics response.
func HardwareAccelerationInfo() map[string]interface{} {
	return map[string]interface{}{
		"aes_hardware_support": HasAESHardwareSupport(),
		"architecture":         runtime.GOARCH,
		"goos":                 runtime.GOOS,
		"go_version":           runtime.Version(),
	}
}
