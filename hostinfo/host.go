// Package hostinfo gathers facts about the machine WINIX is running on top
// of, used to size the simulated kernel (the physical page bitmap in
// particular).
package hostinfo

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	DefaultProcRoot  = "/proc"
	OSReleaseFile    = "/etc/os-release"
	OSKernelFilePath = "sys/kernel/osrelease"
	CPUInfoFilePath  = "cpuinfo"
	UnknownKey       = "UNKNOWN"
)

// OS represents details about the operating system hosting the WINIX
// simulation.
type OS struct {
	Name    string
	Version string
}

// Kernel represents details about the host's own kernel, as distinct from
// the simulated WINIX kernel riding on top of it.
type Kernel struct {
	Type    string
	Version string
}

// Hardware represents the hardware visible to the host.
type Hardware struct {
	CPU          CPUInfo
	Architecture string
}

// CPUInfo represents details about the central processing unit.
type CPUInfo struct {
	CPUCount int
}

// Memory represents the host's physical memory, used to size the
// simulated mem_map bitmap.
type Memory struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// PageCount returns how many WINIX pages of pageSize bytes the host's total
// memory could back, capped at max (0 means no cap).
func (m Memory) PageCount(pageSize, max int) int {
	if pageSize <= 0 {
		return 0
	}
	n := int(m.TotalBytes / uint64(pageSize))
	if max > 0 && n > max {
		return max
	}
	return n
}

// Reader defines the actions available for retrieving information about a
// host.
type Reader interface {
	GetOS() (*OS, error)
	GetKernel() (*Kernel, error)
	GetHardware() (*Hardware, error)
	GetMemory() (*Memory, error)
}

// LinuxReader is the Linux-specific implementation of [Reader].
type LinuxReader struct {
	procDir string
}

type LinuxReaderConfig struct {
	ProcDirPath string
}

func NewLinuxReader(conf LinuxReaderConfig) LinuxReader {
	if conf.ProcDirPath == "" {
		conf.ProcDirPath = DefaultProcRoot
	}
	return LinuxReader{procDir: conf.ProcDirPath}
}

// GetOS looks up details about the operating system within /etc/os-release,
// per the [freedesktop specification].
//
// [freedesktop specification]: https://www.freedesktop.org/software/systemd/man/os-release.html
func (h *LinuxReader) GetOS() (*OS, error) {
	data, err := os.ReadFile(OSReleaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed locating OS details at %s: %w", OSReleaseFile, err)
	}
	kv := parseKeyValueFile(data, "=")
	return &OS{
		Name:    kv["ID"],
		Version: sanitize(kv["VERSION"]),
	}, nil
}

// GetKernel retrieves details about the host's kernel.
func (h *LinuxReader) GetKernel() (*Kernel, error) {
	p := filepath.Join(h.procDir, OSKernelFilePath)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed getting kernel version from %s: %w", p, err)
	}
	return &Kernel{
		Type:    "Linux",
		Version: strings.TrimSpace(string(data)),
	}, nil
}

func (h *LinuxReader) GetHardware() (*Hardware, error) {
	return &Hardware{
		CPU:          h.getCPUInfo(),
		Architecture: getArch(),
	}, nil
}

// GetMemory reports the host's total and free physical memory via
// unix.Sysinfo, used to size the simulated physical page bitmap at boot.
func (h *LinuxReader) GetMemory() (*Memory, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return nil, fmt.Errorf("failed reading sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return &Memory{
		TotalBytes: uint64(info.Totalram) * unit,
		FreeBytes:  uint64(info.Freeram) * unit,
	}, nil
}

// getCPUInfo retrieves the host's processor count from /proc/cpuinfo. If it
// cannot be read, an empty CPUInfo is returned.
func (h *LinuxReader) getCPUInfo() CPUInfo {
	count := 0
	p := filepath.Join(h.procDir, CPUInfoFilePath)
	f, err := os.Open(p)
	if err != nil {
		log.Printf("failed retrieving processor count from %s: %s", p, err)
		return CPUInfo{}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), ":", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.TrimSpace(kv[0]) == "processor" {
			count++
		}
	}
	return CPUInfo{CPUCount: count}
}

// getArch is the equivalent of uname -m.
func getArch() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return UnknownKey
	}
	return charsToString(u.Machine[:])
}

func charsToString(b []byte) string {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

func sanitize(v string) string {
	return strings.Trim(v, "\"")
}

// parseKeyValueFile parses KEY<sep>VALUE lines, as found in os-release.
func parseKeyValueFile(contents []byte, sep string) map[string]string {
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	out := map[string]string{}
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), sep, 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}
