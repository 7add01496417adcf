package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs shared by the service tests
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int
	err    error // returned by every call when set

	// afterFindByEmail runs once a lookup has been copied out, to interleave
	// a concurrent write.
	afterFindByEmail func()
}

func newStubUserRepo(seed ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range seed {
		r.byID[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.AllowedDevices = slices.Clone(u.AllowedDevices)
	if u.ResetExpiresAt != nil {
		exp := *u.ResetExpiresAt
		clone.ResetExpiresAt = &exp
	}
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var found *domain.User
	for _, u := range r.byID {
		if u.Email == email {
			found = cloneUser(u)
			break
		}
	}
	hook := r.afterFindByEmail
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	r.mu.Lock()
	if found == nil {
		return nil, domain.ErrUserNotFound
	}
	return found, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByRole(_ context.Context, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Role == role {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrDuplicateEmail
		}
		if user.Role == domain.RoleSuperAdmin && u.Role == domain.RoleSuperAdmin {
			return nil, domain.ErrConflict
		}
	}
	r.nextID++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user-%d", r.nextID)
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) SetResetToken(_ context.Context, userID, token string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetToken = token
	u.ResetExpiresAt = &exp
	return nil
}

func (r *stubUserRepo) AddAllowedDevice(_ context.Context, userID, deviceID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if !u.HasDevice(deviceID) {
		u.AllowedDevices = append(u.AllowedDevices, deviceID)
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ConsumeResetToken(_ context.Context, userID, token, hash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok || u.ResetToken == "" || u.ResetToken != token || u.ResetExpiresAt == nil || !now.Before(*u.ResetExpiresAt) {
		return domain.ErrInvalidOrExpiredToken
	}
	u.PasswordHash = hash
	u.ResetToken = ""
	u.ResetExpiresAt = nil
	return nil
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.byID[id])
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type stubDeviceRepo struct {
	devices map[string]*domain.Device
	listed  [][]string // deviceIDs argument of each List call
}

func newStubDeviceRepo(ids ...string) *stubDeviceRepo {
	r := &stubDeviceRepo{devices: make(map[string]*domain.Device)}
	for _, id := range ids {
		r.devices[id] = &domain.Device{DeviceID: id, DeviceName: "Phone " + id}
	}
	return r
}

func (r *stubDeviceRepo) FindByDeviceID(_ context.Context, id string) (*domain.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	return d, nil
}

func (r *stubDeviceRepo) List(_ context.Context, ids []string) ([]*domain.Device, error) {
	r.listed = append(r.listed, ids)
	var out []*domain.Device
	for id, d := range r.devices {
		if ids == nil || slices.Contains(ids, id) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (r *stubDeviceRepo) Create(_ context.Context, d *domain.Device) error {
	if _, ok := r.devices[d.DeviceID]; ok {
		return domain.ErrDuplicateDevice
	}
	r.devices[d.DeviceID] = d
	return nil
}

func (r *stubDeviceRepo) Update(_ context.Context, id string, in ports.UpdateDeviceInput, now time.Time) (*domain.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	if in.DeviceName != nil {
		d.DeviceName = *in.DeviceName
	}
	if in.Status != nil {
		d.Status = domain.DeviceStatus(*in.Status)
	}
	if in.BatteryLevel != nil {
		d.BatteryLevel = *in.BatteryLevel
	}
	if in.Settings != nil {
		d.Settings = *in.Settings
	}
	d.UpdatedAt = now
	return d, nil
}

func (r *stubDeviceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.devices[id]; !ok {
		return domain.ErrDeviceNotFound
	}
	delete(r.devices, id)
	return nil
}

type stubAuthLogRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuthLogEntry
	insertErr error
}

func (r *stubAuthLogRepo) Insert(_ context.Context, e *domain.AuthLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *stubAuthLogRepo) Recent(_ context.Context, limit int) ([]domain.AuthLogView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuthLogView
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, domain.AuthLogView{AuthLogEntry: *r.entries[i]})
	}
	return out, nil
}

func (r *stubAuthLogRepo) last() *domain.AuthLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[len(r.entries)-1]
}

type sentMail struct {
	to, subject, body string
}

type stubMailer struct {
	sent []sentMail
	err  error
}

func (m *stubMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type stubTelemetryRepo struct {
	records   map[string]*domain.TelemetryRecord
	inserted  []*domain.TelemetryRecord
	deleted   []string
	lastQuery ports.TelemetryFilter
	total     int64
	insertErr error
}

func newStubTelemetryRepo(seed ...*domain.TelemetryRecord) *stubTelemetryRepo {
	r := &stubTelemetryRepo{records: make(map[string]*domain.TelemetryRecord)}
	for _, rec := range seed {
		r.records[rec.ID] = rec
	}
	return r
}

func (r *stubTelemetryRepo) Insert(_ context.Context, rec *domain.TelemetryRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, rec)
	return nil
}

func (r *stubTelemetryRepo) List(_ context.Context, f ports.TelemetryFilter) ([]*domain.TelemetryRecord, int64, error) {
	r.lastQuery = f
	return nil, r.total, nil
}

func (r *stubTelemetryRepo) FindByID(_ context.Context, kind domain.TelemetryKind, id string) (*domain.TelemetryRecord, error) {
	rec, ok := r.records[id]
	if !ok || rec.Kind != kind {
		return nil, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubTelemetryRepo) Latest(_ context.Context, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error) {
	var latest *domain.TelemetryRecord
	for _, rec := range r.records {
		if rec.Kind == kind && rec.DeviceID == deviceID && (latest == nil || rec.Timestamp.After(latest.Timestamp)) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, domain.ErrRecordNotFound
	}
	return latest, nil
}

func (r *stubTelemetryRepo) Update(_ context.Context, kind domain.TelemetryKind, id string, data map[string]any, ts time.Time) (*domain.TelemetryRecord, error) {
	rec, ok := r.records[id]
	if !ok || rec.Kind != kind {
		return nil, domain.ErrRecordNotFound
	}
	rec.Data = data
	if !ts.IsZero() {
		rec.Timestamp = ts.UTC()
	}
	return rec, nil
}

func (r *stubTelemetryRepo) Delete(_ context.Context, _ domain.TelemetryKind, id string) error {
	delete(r.records, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type stubDedup struct {
	dupResult bool
	dupErr    error
	markErr   error
	marked    []string        // kind:device of each Mark call
	seen      map[string]bool // full keys already marked
}

func stubDedupKey(kind, deviceID string, ts time.Time, digest string) string {
	return fmt.Sprintf("%s:%s:%d:%s", kind, deviceID, ts.UnixMilli(), digest)
}

func (d *stubDedup) IsDuplicate(_ context.Context, kind, deviceID string, ts time.Time, digest string) (bool, error) {
	if d.dupErr != nil {
		return false, d.dupErr
	}
	return d.dupResult || d.seen[stubDedupKey(kind, deviceID, ts, digest)], nil
}

func (d *stubDedup) Mark(_ context.Context, kind, deviceID string, ts time.Time, digest string) error {
	if d.markErr != nil {
		return d.markErr
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	d.seen[stubDedupKey(kind, deviceID, ts, digest)] = true
	d.marked = append(d.marked, kind+":"+deviceID)
	return nil
}

var errStore = errors.New("store unavailable")
