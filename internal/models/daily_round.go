package models

import "time"

// Asset 设备目录解析出的资产信息
type Asset struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	IPAddress  string `json:"ip_address"`
}

// PatientContext 资产关联的临床上下文
type PatientContext struct {
	ConsultationID string `json:"consultation_id"`
	PatientID      string `json:"patient_id"`
}

// BloodPressure 血压字段（daily round 载荷的一部分）
type BloodPressure struct {
	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`
}

// DailyRoundPayload 提交给上游临床系统的巡房载荷
type DailyRoundPayload struct {
	TakenAt               time.Time      `json:"taken_at"`
	RoundsType            string         `json:"rounds_type"`
	SpO2                  *float64       `json:"spo2"`
	Resp                  *float64       `json:"resp"`
	Pulse                 *float64       `json:"pulse"`
	BP                    *BloodPressure `json:"bp"`
	Temperature           *float64       `json:"temperature"`
	TemperatureMeasuredAt *string        `json:"temperature_measured_at"`
}
