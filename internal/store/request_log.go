package store

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// RequestLog 最近入站载荷的有界环（仅供诊断接口读取）
type RequestLog struct {
	mu      sync.RWMutex
	entries []models.LogEntry
	limit   int
	last    json.RawMessage
	now     func() time.Time
}

func NewRequestLog(limit int) *RequestLog {
	if limit <= 0 {
		limit = 10
	}
	return &RequestLog{limit: limit, now: time.Now}
}

// Add 记录一条原始入站载荷，超过上限时丢弃最旧条目
func (r *RequestLog) Add(raw json.RawMessage) {
	data := append(json.RawMessage(nil), raw...)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = data
	r.entries = append(r.entries, models.LogEntry{DateTime: r.now(), Data: data})
	if len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
}

// Entries 返回最近的日志条目（最旧在前）
func (r *RequestLog) Entries() []models.LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.LogEntry(nil), r.entries...)
}

// LastRequest 返回最近一次入站载荷；从未收到请求时返回空对象
func (r *RequestLog) LastRequest() json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.last == nil {
		return json.RawMessage(`{}`)
	}
	return r.last
}
