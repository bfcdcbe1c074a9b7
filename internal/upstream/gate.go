package upstream

import (
	"sync"
	"sync/atomic"
	"time"
)

// GatePolicy 上游同步的节流策略。
// AcquirePass 决定是否开始一轮同步（同时保证同一时间至多一轮）；
// AdmitDevice 决定本轮内单个设备是否参与；
// ReleasePass 在一轮结束后释放（用于需要互斥标记的策略）。
type GatePolicy interface {
	AcquirePass(now time.Time) bool
	AdmitDevice(deviceID string, now time.Time) bool
	ReleasePass()
}

// GlobalGate 进程级单时间戳节流：每 interval 至多一轮，覆盖所有设备。
// 时间戳在轮次开始时（任何外部调用之前）推进，CAS 保证无并发轮次。
type GlobalGate struct {
	interval time.Duration
	lastNano atomic.Int64
}

func NewGlobalGate(interval time.Duration) *GlobalGate {
	return &GlobalGate{interval: interval}
}

func (g *GlobalGate) AcquirePass(now time.Time) bool {
	last := g.lastNano.Load()
	if last != 0 && now.UnixNano()-last < int64(g.interval) {
		return false
	}
	return g.lastNano.CompareAndSwap(last, now.UnixNano())
}

func (g *GlobalGate) AdmitDevice(string, time.Time) bool { return true }

func (g *GlobalGate) ReleasePass() {}

// DeviceGate 按设备节流：每个设备每 interval 至多提交一次，
// 轮次本身用互斥标记保证不并发。
type DeviceGate struct {
	interval time.Duration
	running  atomic.Bool

	mu   sync.Mutex
	last map[string]time.Time
}

func NewDeviceGate(interval time.Duration) *DeviceGate {
	return &DeviceGate{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

func (g *DeviceGate) AcquirePass(now time.Time) bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *DeviceGate) AdmitDevice(deviceID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[deviceID]; ok && now.Sub(last) < g.interval {
		return false
	}
	g.last[deviceID] = now
	return true
}

func (g *DeviceGate) ReleasePass() {
	g.running.Store(false)
}
