package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the lowest open file limit the SQLite store, the
// vector snapshot and the inbox watcher run under comfortably.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks the soft RLIMIT_NOFILE.
func (c *Checker) CheckFileDescriptors() Result {
	result := Result{Name: "file_descriptors", Required: true}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = Fail
		result.Message = fmt.Sprintf("getrlimit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", limit.Cur, MinFileDescriptors)
	if limit.Cur < MinFileDescriptors {
		result.Status = Fail
		result.Details = "raise it with 'ulimit -n 4096'"
		return result
	}
	result.Status = Pass
	return result
}
