package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

type DeviceHandler struct {
	service ports.DeviceService
}

func NewDeviceHandler(service ports.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// ListPublic handles GET /devices/public.
//
// @Summary      List all devices (agent facing)
// @Tags         devices
// @Produce      json
// @Success      200  {array}   domain.Device
// @Router       /devices/public [get]
func (h *DeviceHandler) ListPublic(c echo.Context) error {
	devices, err := h.service.ListPublic(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, devices)
}

// List handles GET /devices, scoped to the caller's role.
//
// @Summary      List visible devices
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Device
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /devices [get]
func (h *DeviceHandler) List(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	devices, err := h.service.List(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, devices)
}

// Get handles GET /devices/:id.
//
// @Summary      Get a device by device id
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  domain.Device
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /devices/{id} [get]
func (h *DeviceHandler) Get(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	device, err := h.service.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, device)
}

// Create handles POST /devices. Agents provision themselves before any user
// can reference the device.
//
// @Summary      Provision a device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      createDeviceRequest  true  "Device"
// @Success      201   {object}  domain.Device
// @Failure      400   {object}  errorResponse
// @Router       /devices [post]
func (h *DeviceHandler) Create(c echo.Context) error {
	var req createDeviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	device, err := h.service.Create(c.Request().Context(), toCreateDeviceInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, device)
}

// Update handles PUT /devices/:id.
//
// @Summary      Update a device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Device id"
// @Param        body  body      updateDeviceRequest  true  "Fields to change"
// @Success      200   {object}  domain.Device
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /devices/{id} [put]
func (h *DeviceHandler) Update(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req updateDeviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	device, err := h.service.Update(c.Request().Context(), caller, c.Param("id"), toUpdateDeviceInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, device)
}

// Delete handles DELETE /devices/:id (super admin only).
//
// @Summary      Delete a device
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /devices/{id} [delete]
func (h *DeviceHandler) Delete(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Device deleted successfully"})
}

// Assign handles POST /devices/assign (super admin only).
//
// @Summary      Assign a device to an admin
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      assignDeviceRequest  true  "Admin and device"
// @Success      200   {object}  assignDeviceResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /devices/assign [post]
func (h *DeviceHandler) Assign(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req assignDeviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	admin, err := h.service.AssignToAdmin(c.Request().Context(), caller, req.AdminID, req.DeviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assignDeviceResponse{Message: "Device assigned successfully", Admin: admin})
}

func toInstalledApps(reqs []installedAppRequest) []domain.InstalledApp {
	if reqs == nil {
		return nil
	}
	apps := make([]domain.InstalledApp, 0, len(reqs))
	for _, a := range reqs {
		apps = append(apps, domain.InstalledApp{
			AppName:      a.AppName,
			PackageName:  a.PackageName,
			IsRestricted: a.IsRestricted,
		})
	}
	return apps
}

func toDeviceSettings(r *deviceSettingsRequest) *domain.DeviceSettings {
	if r == nil {
		return nil
	}
	return &domain.DeviceSettings{
		ScreenTimeLimit: r.ScreenTimeLimit,
		GeofenceRadius:  r.GeofenceRadius,
		AllowedApps:     r.AllowedApps,
		BlockedWebsites: r.BlockedWebsites,
	}
}

func toUpdateDeviceInput(r updateDeviceRequest) ports.UpdateDeviceInput {
	return ports.UpdateDeviceInput{
		DeviceName:    r.DeviceName,
		DeviceType:    r.DeviceType,
		OSVersion:     r.OSVersion,
		Manufacturer:  r.Manufacturer,
		LastConnected: r.LastConnected,
		Status:        r.Status,
		ChildID:       r.ChildID,
		BatteryLevel:  r.BatteryLevel,
		InstalledApps: toInstalledApps(r.InstalledApps),
		Settings:      toDeviceSettings(r.Settings),
	}
}

func toCreateDeviceInput(r createDeviceRequest) ports.CreateDeviceInput {
	in := ports.CreateDeviceInput{
		DeviceID:      r.DeviceID,
		DeviceName:    r.DeviceName,
		DeviceType:    r.DeviceType,
		OSVersion:     r.OSVersion,
		Manufacturer:  r.Manufacturer,
		LastConnected: r.LastConnected,
		Status:        r.Status,
		ChildID:       r.ChildID,
		BatteryLevel:  r.BatteryLevel,
		InstalledApps: toInstalledApps(r.InstalledApps),
	}
	if s := toDeviceSettings(r.Settings); s != nil {
		in.Settings = *s
	}
	return in
}
