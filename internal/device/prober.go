package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"

	"drive-health-check/internal/utils"
	"drive-health-check/pkg/types"
)

// ErrDeviceNotFound is the only fatal, run-aborting error in the pipeline:
// the target path does not resolve to a usable block device.
var ErrDeviceNotFound = errors.New("device not found")

// Prober resolves and validates the diagnostic target.
type Prober struct {
	runner utils.Runner
}

// NewProber creates a prober using the given command runner.
func NewProber(runner utils.Runner) *Prober {
	return &Prober{runner: runner}
}

// Probe validates the target path and builds an immutable DeviceHandle.
// Accepted targets: a block device, a mount point (resolved to its backing
// device), or a regular file (disk image). All queries are read-only.
func (p *Prober) Probe(ctx context.Context, path string) (types.DeviceHandle, []string, error) {
	var warnings []string

	info, err := os.Stat(path)
	if err != nil {
		return types.DeviceHandle{}, nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	}

	devPath := path
	switch {
	case info.Mode()&os.ModeCharDevice != 0:
		return types.DeviceHandle{}, nil, fmt.Errorf("%w: %s is a character device", ErrDeviceNotFound, path)
	case info.Mode()&os.ModeDevice != 0:
		// block device, use as-is
	case info.Mode().IsRegular():
		// disk image; size comes straight from the file
		return types.DeviceHandle{
			Path:      path,
			SizeBytes: info.Size(),
		}, warnings, nil
	case info.IsDir():
		devPath, err = resolveMount(path)
		if err != nil {
			return types.DeviceHandle{}, nil, err
		}
		log.Debug().Str("mount", path).Str("device", devPath).Msg("resolved mount point to backing device")
	default:
		return types.DeviceHandle{}, nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	}

	handle := types.DeviceHandle{Path: devPath}

	handle.SizeBytes, err = p.deviceSize(ctx, devPath)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("could not determine size of %s: %v", devPath, err))
		log.Warn().Err(err).Str("device", devPath).Msg("device size unavailable")
	}

	handle.ModelName = p.deviceModel(ctx, devPath)

	return handle, warnings, nil
}

// resolveMount maps a mounted directory to its backing block device.
func resolveMount(path string) (string, error) {
	clean := filepath.Clean(path)

	partitions, err := disk.Partitions(false)
	if err != nil {
		return "", fmt.Errorf("%w: %s (partition scan failed: %v)", ErrDeviceNotFound, path, err)
	}

	for _, part := range partitions {
		if filepath.Clean(part.Mountpoint) == clean {
			return part.Device, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not a mount point", ErrDeviceNotFound, path)
}

// deviceSize queries the device byte size, preferring blockdev and falling
// back to lsblk's human-readable column.
func (p *Prober) deviceSize(ctx context.Context, devPath string) (int64, error) {
	res := p.runner.Run(ctx, "blockdev", "--getsize64", devPath)
	if !res.Failed() {
		size, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
		if err == nil && size > 0 {
			return size, nil
		}
	}

	res = p.runner.Run(ctx, "lsblk", "-dno", "SIZE", devPath)
	if !res.Failed() {
		if size := utils.ParseSizeToBytes(strings.TrimSpace(res.Stdout)); size > 0 {
			return size, nil
		}
	}

	return 0, fmt.Errorf("blockdev and lsblk both failed for %s", devPath)
}

// deviceModel queries the drive model string, best-effort.
func (p *Prober) deviceModel(ctx context.Context, devPath string) string {
	res := p.runner.Run(ctx, "lsblk", "-dno", "MODEL", devPath)
	if res.Failed() {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}
