package monitoring

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a point-in-time snapshot of the host running the backend.
type SystemStats struct {
	CPUPercent      float64 `json:"cpuPercent"`
	MemTotal        uint64  `json:"memTotal"`
	MemUsed         uint64  `json:"memUsed"`
	MemUsedPercent  float64 `json:"memUsedPercent"`
	DiskTotal       uint64  `json:"diskTotal"`
	DiskUsed        uint64  `json:"diskUsed"`
	DiskUsedPercent float64 `json:"diskUsedPercent"`
	UptimeSeconds   uint64  `json:"uptimeSeconds"`
}

// CollectStats gathers cpu/memory/disk usage for the given data path.
func CollectStats(dataPath string) (SystemStats, error) {
	var stats SystemStats

	cpuPercents, err := cpu.Percent(200*time.Millisecond, false)
	if err == nil && len(cpuPercents) > 0 {
		stats.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, err
	}
	stats.MemTotal = vm.Total
	stats.MemUsed = vm.Used
	stats.MemUsedPercent = vm.UsedPercent

	du, err := disk.Usage(dataPath)
	if err != nil {
		return stats, err
	}
	stats.DiskTotal = du.Total
	stats.DiskUsed = du.Used
	stats.DiskUsedPercent = du.UsedPercent

	uptime, err := host.Uptime()
	if err != nil {
		return stats, err
	}
	stats.UptimeSeconds = uptime

	return stats, nil
}
