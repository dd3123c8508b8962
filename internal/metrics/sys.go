package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var processStart = time.Now()

// SysHealth is a point-in-time view of the process, served by the health endpoint.
type SysHealth struct {
	AllocMB      uint64 `json:"allocMb"`
	TotalAllocMB uint64 `json:"totalAllocMb"`
	SysMB        uint64 `json:"sysMb"`
	NumGC        uint32 `json:"numGc"`
	Goroutines   int    `json:"goroutines"`
	Uptime       string `json:"uptime"`
	DataDiskSize string `json:"dataDiskSize"`
}

// GetSysHealth collects memory, goroutine and disk figures. dataPath is the
// directory holding the database; an empty path skips the disk figure.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h := SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(processStart).Truncate(time.Second).String(),
	}
	if dataPath != "" {
		h.DataDiskSize = FormatBytes(dirSize(dataPath))
	}
	return h
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 KB".
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
