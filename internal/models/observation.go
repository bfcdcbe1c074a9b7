package models

import (
	"encoding/json"
	"time"
)

// 设备侧常用的观测类型标识
const (
	ObservationSpO2        = "SpO2"
	ObservationHeartRate   = "heart-rate"
	ObservationRespRate    = "respiratory-rate"
	ObservationTemperature = "body-temperature1"
)

// StatusFinal 观测值确认状态（仅 final 状态的数值参与上游同步）
const StatusFinal = "final"

// NestedValue 嵌套数值字段（如 systolic/diastolic）
type NestedValue struct {
	Value *float64 `json:"value,omitempty"`
}

// Observation 单条设备观测记录
// 设备推送的 JSON 中除已知字段外可能携带任意附加属性，
// 序列化时必须原样透传，因此内部保留原始键值。
type Observation struct {
	DeviceID      string
	ObservationID string
	DateTime      string
	Status        string
	Value         *float64
	Systolic      *NestedValue
	Diastolic     *NestedValue
	LowLimit      *float64
	HighLimit     *float64

	raw map[string]json.RawMessage
}

// UnmarshalJSON 解析已知字段并保留全部原始键值
func (o *Observation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.raw = raw

	decode := func(key string, dest any) error {
		if v, ok := raw[key]; ok {
			return json.Unmarshal(v, dest)
		}
		return nil
	}

	if err := decode("device_id", &o.DeviceID); err != nil {
		return err
	}
	if err := decode("observation_id", &o.ObservationID); err != nil {
		return err
	}
	if err := decode("date-time", &o.DateTime); err != nil {
		return err
	}
	if err := decode("status", &o.Status); err != nil {
		return err
	}
	if err := decode("value", &o.Value); err != nil {
		return err
	}
	if err := decode("systolic", &o.Systolic); err != nil {
		return err
	}
	if err := decode("diastolic", &o.Diastolic); err != nil {
		return err
	}
	if err := decode("low-limit", &o.LowLimit); err != nil {
		return err
	}
	if err := decode("high-limit", &o.HighLimit); err != nil {
		return err
	}
	return nil
}

// MarshalJSON 输出原始键值（透传附加属性）；
// 直接构造（未经反序列化）的实例按已知字段输出。
func (o Observation) MarshalJSON() ([]byte, error) {
	if o.raw != nil {
		return json.Marshal(o.raw)
	}

	out := map[string]any{
		"device_id":      o.DeviceID,
		"observation_id": o.ObservationID,
	}
	if o.DateTime != "" {
		out["date-time"] = o.DateTime
	}
	if o.Status != "" {
		out["status"] = o.Status
	}
	if o.Value != nil {
		out["value"] = o.Value
	}
	if o.Systolic != nil {
		out["systolic"] = o.Systolic
	}
	if o.Diastolic != nil {
		out["diastolic"] = o.Diastolic
	}
	if o.LowLimit != nil {
		out["low-limit"] = o.LowLimit
	}
	if o.HighLimit != nil {
		out["high-limit"] = o.HighLimit
	}
	return json.Marshal(out)
}

// DeviceBuffer 单设备的观测窗口缓冲
type DeviceBuffer struct {
	DeviceID     string                   `json:"device_id"`
	Observations map[string][]Observation `json:"observations"`
	LastUpdated  time.Time                `json:"last_updated"`
}

// LogEntry 诊断日志条目（仅用于排障检查）
type LogEntry struct {
	DateTime time.Time       `json:"dateTime"`
	Data     json.RawMessage `json:"data"`
}
