package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

const maxBatchSize = 500

// TelemetryDispatcher is the interface the handler uses to enqueue records.
type TelemetryDispatcher interface {
	Enqueue(ctx context.Context, in ports.TelemetryInput) error
	EnqueueBatch(ctx context.Context, batch []ports.TelemetryInput) (int, error)
}

// TelemetryHandler handles agent ingestion and device-scoped reads for every
// telemetry kind.
type TelemetryHandler struct {
	dispatcher TelemetryDispatcher
	service    ports.TelemetryService
}

func NewTelemetryHandler(dispatcher TelemetryDispatcher, service ports.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{dispatcher: dispatcher, service: service}
}

// Receive handles POST /telemetry/:kind: enqueues a single record and returns 202.
//
// @Summary      Ingest a telemetry record
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Param        kind  path      string            true  "calls, sms, locations, notifications, contacts, applications, process-activity"
// @Param        body  body      telemetryRequest  true  "Record"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /telemetry/{kind} [post]
func (h *TelemetryHandler) Receive(c echo.Context) error {
	kind, err := domain.ParseTelemetryKind(c.Param("kind"))
	if err != nil {
		return err
	}
	var req telemetryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.dispatcher.Enqueue(c.Request().Context(), toTelemetryInput(kind, req)); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion queue unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "record accepted"})
}

// ReceiveBatch handles POST /telemetry/:kind/batch: enqueues records in order and returns 202.
//
// @Summary      Ingest a batch of telemetry records
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Param        kind  path      string              true  "Telemetry kind"
// @Param        body  body      []telemetryRequest  true  "Records"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /telemetry/{kind}/batch [post]
func (h *TelemetryHandler) ReceiveBatch(c echo.Context) error {
	kind, err := domain.ParseTelemetryKind(c.Param("kind"))
	if err != nil {
		return err
	}
	var reqs []telemetryRequest
	if err := c.Bind(&reqs); err != nil {
		return invalidPayload
	}
	if len(reqs) == 0 {
		return fmt.Errorf("%w: batch cannot be empty", domain.ErrInvalidInput)
	}
	if len(reqs) > maxBatchSize {
		return fmt.Errorf("%w: batch exceeds %d records", domain.ErrInvalidInput, maxBatchSize)
	}

	inputs := make([]ports.TelemetryInput, 0, len(reqs))
	for i := range reqs {
		if err := c.Validate(&reqs[i]); err != nil {
			return fmt.Errorf("record[%d]: %w", i, err)
		}
		inputs = append(inputs, toTelemetryInput(kind, reqs[i]))
	}

	n, err := h.dispatcher.EnqueueBatch(c.Request().Context(), inputs)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable,
			fmt.Sprintf("ingestion queue unavailable after %d records", n)).SetInternal(err)
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "records accepted", Count: n})
}

// ListByDevice handles GET /telemetry/:kind/device/:deviceId.
//
// @Summary      List a device's telemetry
// @Tags         telemetry
// @Produce      json
// @Security     BearerAuth
// @Param        kind      path      string  true   "Telemetry kind"
// @Param        deviceId  path      string  true   "Device id"
// @Param        from      query     string  false  "RFC3339 lower bound"
// @Param        to        query     string  false  "RFC3339 upper bound"
// @Param        page      query     int     false  "Page (1-based)"
// @Param        limit     query     int     false  "Page size (max 100)"
// @Success      200       {object}  telemetryListResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /telemetry/{kind}/device/{deviceId} [get]
func (h *TelemetryHandler) ListByDevice(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := domain.ParseTelemetryKind(c.Param("kind"))
	if err != nil {
		return err
	}

	var (
		page, limit int
		from, to    time.Time
	)
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		Time("from", &from, time.RFC3339).
		Time("to", &to, time.RFC3339).
		BindError(); err != nil {
		return fmt.Errorf("%w: malformed query parameters", domain.ErrInvalidInput)
	}

	res, err := h.service.List(c.Request().Context(), ports.ListTelemetryInput{
		Caller:   caller,
		Kind:     kind,
		DeviceID: c.Param("deviceId"),
		From:     from,
		To:       to,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	records := res.Records
	if records == nil {
		records = []*domain.TelemetryRecord{}
	}
	return c.JSON(http.StatusOK, telemetryListResponse{
		Records: records,
		Pagination: paginationResponse{
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		},
	})
}

// Latest handles GET /telemetry/:kind/device/:deviceId/latest.
//
// @Summary      Get a device's newest record
// @Tags         telemetry
// @Produce      json
// @Security     BearerAuth
// @Param        kind      path      string  true  "Telemetry kind"
// @Param        deviceId  path      string  true  "Device id"
// @Success      200       {object}  domain.TelemetryRecord
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /telemetry/{kind}/device/{deviceId}/latest [get]
func (h *TelemetryHandler) Latest(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := domain.ParseTelemetryKind(c.Param("kind"))
	if err != nil {
		return err
	}

	record, err := h.service.Latest(c.Request().Context(), caller, kind, c.Param("deviceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Update handles PUT /telemetry/:kind/:id.
//
// @Summary      Update a telemetry record
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string                  true  "Telemetry kind"
// @Param        id    path      string                  true  "Record id"
// @Param        body  body      updateTelemetryRequest  true  "New payload"
// @Success      200   {object}  domain.TelemetryRecord
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /telemetry/{kind}/{id} [put]
func (h *TelemetryHandler) Update(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := domain.ParseTelemetryKind(c.Param("kind"))
	if err != nil {
		return err
	}
	var req updateTelemetryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	record, err := h.service.Update(c.Request().Context(), ports.UpdateTelemetryInput{
		Caller:    caller,
		Kind:      kind,
		ID:        c.Param("id"),
		Timestamp: req.Timestamp,
		Data:      req.Data,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Delete handles DELETE /telemetry/:kind/:id.
//
// @Summary      Delete a telemetry record
// @Tags         telemetry
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true  "Telemetry kind"
// @Param        id    path      string  true  "Record id"
// @Success      200   {object}  messageResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /telemetry/{kind}/{id} [delete]
func (h *TelemetryHandler) Delete(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	kind, err := domain.ParseTelemetryKind(c.Param("kind"))
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), caller, kind, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "record deleted successfully"})
}

func toTelemetryInput(kind domain.TelemetryKind, r telemetryRequest) ports.TelemetryInput {
	return ports.TelemetryInput{
		Kind:      kind,
		DeviceID:  r.DeviceID,
		Timestamp: r.Timestamp,
		Data:      r.Data,
	}
}
