package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

type fakeStore struct {
	buffers []models.DeviceBuffer
}

func (f *fakeStore) SnapshotAll() []models.DeviceBuffer { return f.buffers }

type fakeDirectory struct {
	assets      map[string]*models.Asset
	patients    map[string]*models.PatientContext
	assetCalls  []string
	assetErr    error
	patientErr  error
}

func (f *fakeDirectory) GetAsset(ctx context.Context, deviceID string) (*models.Asset, error) {
	f.assetCalls = append(f.assetCalls, deviceID)
	if f.assetErr != nil {
		return nil, f.assetErr
	}
	return f.assets[deviceID], nil
}

func (f *fakeDirectory) GetPatientContext(ctx context.Context, externalID string) (*models.PatientContext, error) {
	if f.patientErr != nil {
		return nil, f.patientErr
	}
	return f.patients[externalID], nil
}

func (f *fakeDirectory) AuthHeaders(externalID string) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer " + externalID}, nil
}

type submission struct {
	consultationID string
	payload        models.DailyRoundPayload
}

type fakeSink struct {
	submissions []submission
	failFor     map[string]error
}

func (f *fakeSink) SubmitDailyRound(ctx context.Context, consultationID string, payload models.DailyRoundPayload, headers map[string]string) error {
	if err, ok := f.failFor[consultationID]; ok {
		return err
	}
	f.submissions = append(f.submissions, submission{consultationID: consultationID, payload: payload})
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func finalObs(obsID string, value float64) models.Observation {
	return models.Observation{
		ObservationID: obsID,
		Status:        models.StatusFinal,
		Value:         floatPtr(value),
	}
}

func deviceBuffer(deviceID string, lastUpdated time.Time, windows map[string][]models.Observation) models.DeviceBuffer {
	return models.DeviceBuffer{
		DeviceID:     deviceID,
		Observations: windows,
		LastUpdated:  lastUpdated,
	}
}

func newTestScheduler(store BufferSource, dir DeviceDirectory, sink CareSink, gate GatePolicy, now time.Time) *Scheduler {
	s := NewScheduler(store, dir, sink, gate, time.Hour, time.Second, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func singleDeviceFixture(now time.Time) (*fakeStore, *fakeDirectory, *fakeSink) {
	st := &fakeStore{buffers: []models.DeviceBuffer{
		deviceBuffer("m1", now, map[string][]models.Observation{
			models.ObservationHeartRate: {finalObs(models.ObservationHeartRate, 72)},
		}),
	}}
	dir := &fakeDirectory{
		assets:   map[string]*models.Asset{"m1": {ID: "a1", ExternalID: "ext-1"}},
		patients: map[string]*models.PatientContext{"ext-1": {ConsultationID: "con-1", PatientID: "pat-1"}},
	}
	return st, dir, &fakeSink{}
}

func TestScheduler_GateAllowsOnePassPerInterval(t *testing.T) {
	now := time.Now()
	st, dir, sink := singleDeviceFixture(now)
	gate := NewGlobalGate(time.Hour)

	s := newTestScheduler(st, dir, sink, gate, now)
	s.RunPassNow()
	s.RunPassNow() // gated: same hour

	assert.Len(t, sink.submissions, 1)

	// after the hour elapses another pass runs
	later := now.Add(61 * time.Minute)
	s.now = func() time.Time { return later }
	st.buffers[0].LastUpdated = later
	s.RunPassNow()

	assert.Len(t, sink.submissions, 2)
}

func TestScheduler_StaleDeviceSkippedWithoutLookup(t *testing.T) {
	now := time.Now()
	st, dir, sink := singleDeviceFixture(now)
	st.buffers[0].LastUpdated = now.Add(-2 * time.Hour)

	s := newTestScheduler(st, dir, sink, NewGlobalGate(time.Hour), now)
	s.RunPassNow()

	assert.Empty(t, dir.assetCalls)
	assert.Empty(t, sink.submissions)
}

func TestScheduler_NoPatientSkipsSubmission(t *testing.T) {
	now := time.Now()
	st, dir, sink := singleDeviceFixture(now)
	dir.patients["ext-1"] = &models.PatientContext{ConsultationID: "con-1"}

	s := newTestScheduler(st, dir, sink, NewGlobalGate(time.Hour), now)
	s.RunPassNow()

	assert.Empty(t, sink.submissions)
}

func TestScheduler_DeviceFailureIsIsolated(t *testing.T) {
	now := time.Now()
	st := &fakeStore{buffers: []models.DeviceBuffer{
		deviceBuffer("m1", now, map[string][]models.Observation{}),
		deviceBuffer("m2", now, map[string][]models.Observation{}),
	}}
	dir := &fakeDirectory{
		assets: map[string]*models.Asset{
			"m1": {ID: "a1", ExternalID: "ext-1"},
			"m2": {ID: "a2", ExternalID: "ext-2"},
		},
		patients: map[string]*models.PatientContext{
			"ext-1": {ConsultationID: "con-1", PatientID: "pat-1"},
			"ext-2": {ConsultationID: "con-2", PatientID: "pat-2"},
		},
	}
	sink := &fakeSink{failFor: map[string]error{"con-1": errors.New("care rejected")}}

	s := newTestScheduler(st, dir, sink, NewGlobalGate(time.Hour), now)
	s.RunPassNow()

	require.Len(t, sink.submissions, 1)
	assert.Equal(t, "con-2", sink.submissions[0].consultationID)
}

func TestBuildDailyRound_VitalsOnlyWhenFinal(t *testing.T) {
	now := time.Now()
	buf := deviceBuffer("m1", now, map[string][]models.Observation{
		models.ObservationHeartRate: {finalObs(models.ObservationHeartRate, 72)},
		models.ObservationRespRate: {{
			ObservationID: models.ObservationRespRate,
			Status:        "preliminary",
			Value:         floatPtr(18),
		}},
	})

	payload := BuildDailyRound(buf)

	require.NotNil(t, payload.Pulse)
	assert.Equal(t, 72.0, *payload.Pulse)
	assert.Nil(t, payload.Resp)
	assert.Nil(t, payload.SpO2)
	assert.Nil(t, payload.BP)
	assert.Equal(t, "NORMAL", payload.RoundsType)
	assert.Equal(t, now, payload.TakenAt)
}

func TestBuildDailyRound_BPFromSpO2Channel(t *testing.T) {
	spo2 := finalObs(models.ObservationSpO2, 97)
	spo2.Systolic = &models.NestedValue{Value: floatPtr(120)}
	spo2.Diastolic = &models.NestedValue{Value: floatPtr(80)}

	buf := deviceBuffer("m1", time.Now(), map[string][]models.Observation{
		models.ObservationSpO2: {spo2},
	})

	payload := BuildDailyRound(buf)

	require.NotNil(t, payload.SpO2)
	assert.Equal(t, 97.0, *payload.SpO2)
	require.NotNil(t, payload.BP)
	assert.Equal(t, 120.0, *payload.BP.Systolic)
	assert.Equal(t, 80.0, *payload.BP.Diastolic)
}

func TestBuildDailyRound_UsesLatestWindowEntry(t *testing.T) {
	buf := deviceBuffer("m1", time.Now(), map[string][]models.Observation{
		models.ObservationHeartRate: {
			finalObs(models.ObservationHeartRate, 70),
			finalObs(models.ObservationHeartRate, 85),
		},
	})

	payload := BuildDailyRound(buf)

	require.NotNil(t, payload.Pulse)
	assert.Equal(t, 85.0, *payload.Pulse)
}

func TestBuildDailyRound_TemperatureWithinLimits(t *testing.T) {
	temp := finalObs(models.ObservationTemperature, 37.2)
	temp.LowLimit = floatPtr(35)
	temp.HighLimit = floatPtr(42)
	temp.DateTime = "2024-01-01 10:30:00"

	buf := deviceBuffer("m1", time.Now(), map[string][]models.Observation{
		models.ObservationTemperature: {temp},
	})

	payload := BuildDailyRound(buf)

	require.NotNil(t, payload.Temperature)
	assert.Equal(t, 37.2, *payload.Temperature)
	require.NotNil(t, payload.TemperatureMeasuredAt)
	assert.Equal(t, "2024-01-01T10:30:00Z", *payload.TemperatureMeasuredAt)
}

func TestBuildDailyRound_TemperatureOutsideOwnLimitsIsDiscarded(t *testing.T) {
	temp := finalObs(models.ObservationTemperature, 55)
	temp.LowLimit = floatPtr(35)
	temp.HighLimit = floatPtr(42)
	temp.DateTime = "2024-01-01 10:30:00"

	buf := deviceBuffer("m1", time.Now(), map[string][]models.Observation{
		models.ObservationTemperature: {temp},
	})

	payload := BuildDailyRound(buf)

	assert.Nil(t, payload.Temperature)
	assert.Nil(t, payload.TemperatureMeasuredAt)
}
