// Package hostinfo describes the machine the classifier itself runs on.
// Reports carry it alongside the target's identity so a reader can tell
// controller facts from target facts.
package hostinfo

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ancients-collective/hostenv/internal/types"
)

// Collect gathers controller information. Every field is best-effort: a
// failed probe leaves its field empty rather than failing the report.
func Collect() types.ControllerInfo {
	info := types.ControllerInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}

	if hi, err := host.Info(); err == nil {
		if hi.Platform != "" {
			info.OS = fmt.Sprintf("%s %s", hi.Platform, hi.PlatformVersion)
		}
		info.Kernel = hi.KernelVersion
	}

	if system, role, err := host.Virtualization(); err == nil && role == "guest" {
		info.Virt = system
	}

	return info
}
