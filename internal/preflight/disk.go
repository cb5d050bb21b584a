package preflight

import (
	"fmt"
	"syscall"

	"github.com/Aman-CERP/amanrag/internal/ui"
)

// MinDiskSpaceBytes is the free space required in the data directory.
const MinDiskSpaceBytes = 100 << 20

// CheckDiskSpace reports the free space of the filesystem holding path.
func (c *Checker) CheckDiskSpace(path string) Result {
	r := Result{Name: "disk_space", Required: true}

	var fs syscall.Statfs_t
	if err := syscall.Statfs(path, &fs); err != nil {
		r.Status, r.Message = Fail, fmt.Sprintf("statfs %s: %v", path, err)
		return r
	}

	free := int64(fs.Bavail) * int64(fs.Bsize)
	r.Message = fmt.Sprintf("%s free (minimum: %s)", ui.FormatBytes(free), ui.FormatBytes(MinDiskSpaceBytes))
	if free < MinDiskSpaceBytes {
		r.Status = Fail
	}
	return r
}
