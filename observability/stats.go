// Package observability collects process health and delivery counters for
// the admin dashboard.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"chat-hive/contract"

	"github.com/shirou/gopsutil/process"
)

// Snapshot is the admin dashboard payload: corpus counts, who is online,
// delivery counters since start, and process health.
type Snapshot struct {
	Users            int      `json:"users"`
	Chats            int      `json:"chats"`
	Messages         int      `json:"messages"`
	OnlineUsers      []string `json:"onlineUsers"`
	Broadcasts       uint64   `json:"broadcasts"`
	DeliveryFailures uint64   `json:"deliveryFailures"`
	Goroutines       int      `json:"goroutines"`
	HeapAllocBytes   uint64   `json:"heapAllocBytes"`
	RSSBytes         uint64   `json:"rssBytes"`
	CPUPercent       float64  `json:"cpuPercent"`
	CollectedAt      string   `json:"collectedAt"`
}

// Monitor aggregates stats from the repositories, the presence set, and the
// running process. It also implements the delivery counter sink fed by the
// broadcaster; both counters are monotonic since process start.
type Monitor struct {
	log      *slog.Logger
	users    contract.IUserRepository
	chats    contract.IChatRepository
	messages contract.IMessageRepository
	presence contract.IPresence

	broadcasts       atomic.Uint64
	deliveryFailures atomic.Uint64
}

func NewMonitor(log *slog.Logger, users contract.IUserRepository,
	chats contract.IChatRepository, messages contract.IMessageRepository,
	presence contract.IPresence) *Monitor {
	return &Monitor{
		log:      log,
		users:    users,
		chats:    chats,
		messages: messages,
		presence: presence,
	}
}

func (m *Monitor) IncrBroadcast()       { m.broadcasts.Add(1) }
func (m *Monitor) IncrDeliveryFailure() { m.deliveryFailures.Add(1) }

// Collect builds a point-in-time snapshot. Count failures are logged and
// reported as zero rather than failing the whole dashboard.
func (m *Monitor) Collect() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := Snapshot{
		OnlineUsers:      m.presence.Snapshot(),
		Broadcasts:       m.broadcasts.Load(),
		DeliveryFailures: m.deliveryFailures.Load(),
		Goroutines:       runtime.NumGoroutine(),
		HeapAllocBytes:   memStats.HeapAlloc,
		CollectedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	var err error
	if snapshot.Users, err = m.users.CountUsers(); err != nil {
		m.log.Warn("Could not count users", "error", err)
	}
	if snapshot.Chats, err = m.chats.CountChats(); err != nil {
		m.log.Warn("Could not count chats", "error", err)
	}
	if snapshot.Messages, err = m.messages.CountMessages(); err != nil {
		m.log.Warn("Could not count messages", "error", err)
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.log.Warn("Could not inspect own process", "error", err)
		return snapshot
	}
	if memInfo, err := proc.MemoryInfo(); err == nil {
		snapshot.RSSBytes = memInfo.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snapshot.CPUPercent = cpu
	}

	return snapshot
}

// HealthWorker periodically logs a snapshot so process health shows up in
// the log stream even when nobody polls the dashboard.
type HealthWorker struct {
	log      *slog.Logger
	monitor  *Monitor
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, monitor *Monitor, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, monitor: monitor, interval: interval}
}

func (w HealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health reporting")
			return nil
		case <-ticker.C:
			snapshot := w.monitor.Collect()
			w.log.Info("Health",
				"online", len(snapshot.OnlineUsers),
				"broadcasts", snapshot.Broadcasts,
				"delivery_failures", snapshot.DeliveryFailures,
				"goroutines", snapshot.Goroutines,
				"heap_bytes", snapshot.HeapAllocBytes,
				"cpu_percent", snapshot.CPUPercent)
		}
	}
}
