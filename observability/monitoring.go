package observability

import (
	"context"
	"livechat/domain/chat"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// MonitoringStats aggregates every metric exposed on /debug/stats.
type MonitoringStats struct {
	// --- FAN-OUT ---
	Broadcasts       uint64 `json:"broadcasts"`
	RecordsDelivered uint64 `json:"records_delivered"`
	Sessions         int    `json:"sessions"`
	CurrentQueueSize int    `json:"current_queue_size"`
	MaxCapacity      int    `json:"max_capacity"`

	// --- PROCESS ---
	Pid        int32   `json:"pid"`
	PidStatus  string  `json:"pid_status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`

	// --- GO RUNTIME ---
	AllocMemMb uint64 `json:"alloc_mem_mb"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Probe reports the live gauges of the broadcast pipeline.
type Probe func() (queueSize, queueCapacity, sessions int)

// MonitoringManager counts broadcasts as a permanent sink and refreshes
// process metrics on a ticker.
type MonitoringManager struct {
	log      *slog.Logger
	probe    Probe
	interval time.Duration

	mu          sync.RWMutex
	latestStats MonitoringStats

	broadcasts uint64
	delivered  uint64
}

func NewMonitoringManager(log *slog.Logger, probe Probe, interval time.Duration) *MonitoringManager {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &MonitoringManager{log: log, probe: probe, interval: interval}
}

// Consume counts every broadcast leaving the fan-out.
func (mm *MonitoringManager) Consume(_ context.Context, p chat.Payload) error {
	atomic.AddUint64(&mm.broadcasts, 1)
	atomic.AddUint64(&mm.delivered, uint64(len(chat.Normalize(p))))
	return nil
}

func (mm *MonitoringManager) Name() string { return "monitoring" }

// Run refreshes the stats until ctx is canceled.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.updateStats(p)
	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Monitoring manager stopped")
			return nil
		case <-ticker.C:
			mm.updateStats(p)
		}
	}
}

func (mm *MonitoringManager) updateStats(p *process.Process) {
	stats := MonitoringStats{
		Broadcasts:       atomic.LoadUint64(&mm.broadcasts),
		RecordsDelivered: atomic.LoadUint64(&mm.delivered),
		Pid:              p.Pid,
		Goroutines:       runtime.NumGoroutine(),
		UpdatedAt:        time.Now().UTC(),
	}
	if mm.probe != nil {
		stats.CurrentQueueSize, stats.MaxCapacity, stats.Sessions = mm.probe()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC

	if rss, cpu, status, err := selfStats(p); err != nil {
		mm.log.Debug("Failed to collect process stats", "error", err)
	} else {
		stats.RSSBytes, stats.CPUPercent, stats.PidStatus = rss, cpu, status
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.mu.Unlock()

	mm.log.Debug("Stats updated",
		"broadcasts", stats.Broadcasts,
		"sessions", stats.Sessions,
		"queue_size", stats.CurrentQueueSize,
		"mem_mb", stats.AllocMemMb,
	)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}

// selfStats retrieves memory, CPU and OS status of the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
