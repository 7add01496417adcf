package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

func setKind(c echo.Context, names []string, values []string) {
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func TestTelemetryHandler_Receive(t *testing.T) {
	d := &stubDispatcher{}
	handler := NewTelemetryHandler(d, &stubTelemetryService{})

	c, rec := newJSONContext(http.MethodPost, "/telemetry/sms",
		`{"device_id":"dev-1","timestamp":"2024-05-01T10:00:00Z","data":{"body":"hi"}}`)
	setKind(c, []string{"kind"}, []string{"sms"})

	if err := handler.Receive(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(d.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued record, got %d", len(d.enqueued))
	}
	got := d.enqueued[0]
	if got.Kind != domain.KindSMS || got.DeviceID != "dev-1" || got.Data["body"] != "hi" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestTelemetryHandler_Receive_UnknownKind(t *testing.T) {
	handler := NewTelemetryHandler(&stubDispatcher{}, &stubTelemetryService{})

	c, _ := newJSONContext(http.MethodPost, "/telemetry/photos", `{"device_id":"dev-1","timestamp":"2024-05-01T10:00:00Z"}`)
	setKind(c, []string{"kind"}, []string{"photos"})

	if err := handler.Receive(c); !errors.Is(err, domain.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestTelemetryHandler_Receive_MissingDevice(t *testing.T) {
	handler := NewTelemetryHandler(&stubDispatcher{}, &stubTelemetryService{})

	c, _ := newJSONContext(http.MethodPost, "/telemetry/calls", `{"timestamp":"2024-05-01T10:00:00Z"}`)
	setKind(c, []string{"kind"}, []string{"calls"})

	if err := handler.Receive(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTelemetryHandler_Receive_QueueUnavailable(t *testing.T) {
	handler := NewTelemetryHandler(&stubDispatcher{err: context.DeadlineExceeded}, &stubTelemetryService{})

	c, _ := newJSONContext(http.MethodPost, "/telemetry/calls", `{"device_id":"dev-1","timestamp":"2024-05-01T10:00:00Z"}`)
	setKind(c, []string{"kind"}, []string{"calls"})

	err := handler.Receive(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestTelemetryHandler_ReceiveBatch(t *testing.T) {
	d := &stubDispatcher{}
	handler := NewTelemetryHandler(d, &stubTelemetryService{})

	body := `[{"device_id":"dev-1","timestamp":"2024-05-01T10:00:00Z"},{"device_id":"dev-1","timestamp":"2024-05-01T10:01:00Z"}]`
	c, rec := newJSONContext(http.MethodPost, "/telemetry/locations/batch", body)
	setKind(c, []string{"kind"}, []string{"locations"})

	if err := handler.ReceiveBatch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp acceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusAccepted || resp.Count != 2 {
		t.Fatalf("expected 202 with count 2, got %d %+v", rec.Code, resp)
	}
	if !d.enqueued[0].Timestamp.Before(d.enqueued[1].Timestamp) {
		t.Fatalf("batch order not preserved")
	}
}

func TestTelemetryHandler_ReceiveBatch_Rejects(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", `[]`},
		{"invalid record", `[{"device_id":"dev-1","timestamp":"2024-05-01T10:00:00Z"},{"timestamp":"2024-05-01T10:00:00Z"}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &stubDispatcher{}
			handler := NewTelemetryHandler(d, &stubTelemetryService{})

			c, _ := newJSONContext(http.MethodPost, "/telemetry/calls/batch", tc.body)
			setKind(c, []string{"kind"}, []string{"calls"})

			if err := handler.ReceiveBatch(c); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if len(d.enqueued) != 0 {
				t.Fatalf("nothing should be enqueued on a rejected batch")
			}
		})
	}
}

func TestTelemetryHandler_ListByDevice(t *testing.T) {
	stub := &stubTelemetryService{
		listFn: func(ctx context.Context, in ports.ListTelemetryInput) (*ports.ListTelemetryResult, error) {
			if in.Kind != domain.KindCalls || in.DeviceID != "dev-1" || in.Page != 2 || in.Limit != 10 {
				t.Fatalf("unexpected input: %+v", in)
			}
			want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			if !in.From.Equal(want) {
				t.Fatalf("expected from %v, got %v", want, in.From)
			}
			return &ports.ListTelemetryResult{Total: 11, Page: 2, Limit: 10, TotalPages: 2}, nil
		},
	}
	handler := NewTelemetryHandler(&stubDispatcher{}, stub)

	c, rec := newJSONContext(http.MethodGet, "/telemetry/calls/device/dev-1?page=2&limit=10&from=2024-05-01T00:00:00Z", "")
	setKind(c, []string{"kind", "deviceId"}, []string{"calls", "dev-1"})
	withPrincipal(c, &domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin})

	if err := handler.ListByDevice(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Records    []any              `json:"records"`
		Pagination paginationResponse `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Records == nil {
		t.Fatalf("expected empty records array, got null")
	}
	if resp.Pagination.TotalPages != 2 || resp.Pagination.Total != 11 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
}

func TestTelemetryHandler_ListByDevice_BadQuery(t *testing.T) {
	handler := NewTelemetryHandler(&stubDispatcher{}, &stubTelemetryService{})

	c, _ := newJSONContext(http.MethodGet, "/telemetry/calls/device/dev-1?from=yesterday", "")
	setKind(c, []string{"kind", "deviceId"}, []string{"calls", "dev-1"})
	withPrincipal(c, &domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin})

	if err := handler.ListByDevice(c); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTelemetryHandler_Delete(t *testing.T) {
	stub := &stubTelemetryService{
		deleteFn: func(ctx context.Context, p *domain.Principal, kind domain.TelemetryKind, id string) error {
			if kind != domain.KindProcessActivity || id != "rec-1" {
				t.Fatalf("unexpected args: %s %s", kind, id)
			}
			return nil
		},
	}
	handler := NewTelemetryHandler(&stubDispatcher{}, stub)

	c, rec := newJSONContext(http.MethodDelete, "/telemetry/process-activity/rec-1", "")
	setKind(c, []string{"kind", "id"}, []string{"process-activity", "rec-1"})
	withPrincipal(c, &domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin})

	if err := handler.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assertMessage(t, rec.Body.Bytes(), "record deleted successfully")
}

func TestTelemetryHandler_Latest(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stub := &stubTelemetryService{
		latestFn: func(ctx context.Context, p *domain.Principal, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error) {
			if kind != domain.KindLocations || deviceID != "dev-1" {
				t.Fatalf("unexpected args: %s %s", kind, deviceID)
			}
			return &domain.TelemetryRecord{ID: "l-2", Kind: kind, DeviceID: deviceID, Timestamp: ts}, nil
		},
	}
	handler := NewTelemetryHandler(&stubDispatcher{}, stub)

	c, rec := newJSONContext(http.MethodGet, "/telemetry/locations/device/dev-1/latest", "")
	setKind(c, []string{"kind", "deviceId"}, []string{"locations", "dev-1"})
	withPrincipal(c, &domain.Principal{UserID: "a1", Role: domain.RoleAdmin, AllowedDevices: []string{"dev-1"}})

	if err := handler.Latest(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp domain.TelemetryRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "l-2" || !resp.Timestamp.Equal(ts) {
		t.Fatalf("unexpected record: %+v", resp)
	}
}

func TestTelemetryHandler_Latest_NotFound(t *testing.T) {
	stub := &stubTelemetryService{
		latestFn: func(context.Context, *domain.Principal, domain.TelemetryKind, string) (*domain.TelemetryRecord, error) {
			return nil, domain.ErrRecordNotFound
		},
	}
	handler := NewTelemetryHandler(&stubDispatcher{}, stub)

	c, _ := newJSONContext(http.MethodGet, "/telemetry/locations/device/dev-1/latest", "")
	setKind(c, []string{"kind", "deviceId"}, []string{"locations", "dev-1"})
	withPrincipal(c, &domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin})

	if err := handler.Latest(c); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestTelemetryHandler_Update(t *testing.T) {
	stub := &stubTelemetryService{
		updateFn: func(ctx context.Context, in ports.UpdateTelemetryInput) (*domain.TelemetryRecord, error) {
			if in.Kind != domain.KindCalls || in.ID != "rec-1" || in.Caller.UserID != "a1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if !in.Timestamp.IsZero() || in.Data["duration"] != float64(12) {
				t.Fatalf("unexpected payload: %+v", in)
			}
			return &domain.TelemetryRecord{ID: in.ID, Kind: in.Kind, DeviceID: "dev-1", Data: in.Data}, nil
		},
	}
	handler := NewTelemetryHandler(&stubDispatcher{}, stub)

	c, rec := newJSONContext(http.MethodPut, "/telemetry/calls/rec-1", `{"data":{"duration":12}}`)
	setKind(c, []string{"kind", "id"}, []string{"calls", "rec-1"})
	withPrincipal(c, &domain.Principal{UserID: "a1", Role: domain.RoleAdmin, AllowedDevices: []string{"dev-1"}})

	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTelemetryHandler_Update_UnknownKind(t *testing.T) {
	handler := NewTelemetryHandler(&stubDispatcher{}, &stubTelemetryService{})

	c, _ := newJSONContext(http.MethodPut, "/telemetry/photos/rec-1", `{"data":{}}`)
	setKind(c, []string{"kind", "id"}, []string{"photos", "rec-1"})
	withPrincipal(c, &domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin})

	if err := handler.Update(c); !errors.Is(err, domain.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
