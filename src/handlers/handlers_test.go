package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/username/nanopos/src/commands"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/session"
)

type stubSync struct {
	snap    *models.Snapshot
	err     error
	updates int
}

func (s *stubSync) UpdateInfo(ctx context.Context, sync bool) (*models.Snapshot, error) {
	s.updates++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func (s *stubSync) Snapshot() (*models.Snapshot, bool) {
	return s.snap, s.snap != nil && s.err == nil
}

func (s *stubSync) Status() models.SyncStatus {
	return models.SyncStatus{State: models.SyncReady}
}

func (s *stubSync) Invalidate() {}

type stubWatch struct {
	status *models.WatchStatus
}

func (s *stubWatch) Start(ctx context.Context, itemIDs []int64) (models.WatchStatus, error) {
	return models.WatchStatus{}, services.ErrNoAddress
}

func (s *stubWatch) Watch(ctx context.Context, req services.WatchRequest) (models.WatchStatus, error) {
	return models.WatchStatus{}, services.ErrNoAddress
}

func (s *stubWatch) Stop() (models.WatchStatus, error) {
	return models.WatchStatus{}, services.ErrNoActiveWatch
}

func (s *stubWatch) Status() (models.WatchStatus, bool) {
	if s.status == nil {
		return models.WatchStatus{}, false
	}
	return *s.status, true
}

func (s *stubWatch) Wait(ctx context.Context) (models.WatchStatus, error) {
	return models.WatchStatus{}, services.ErrNoActiveWatch
}

func TestHandleGetSnapshotETag(t *testing.T) {
	sync := &stubSync{snap: &models.Snapshot{Address: "nano_a", Balance: models.Balance{Total: "03.00"}}}
	h := NewSnapshotHandler(sync, &stubWatch{}, &session.Session{})

	rec := httptest.NewRecorder()
	h.HandleGetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" || !strings.HasPrefix(etag, `"`) {
		t.Fatalf("ETag = %q, want a quoted value", etag)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache, private" {
		t.Errorf("Cache-Control = %q", cc)
	}
	var body models.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Balance.Total != "03.00" {
		t.Errorf("body balance = %q", body.Balance.Total)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.HandleGetSnapshot(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("revalidation status = %d, want 304", rec.Code)
	}
	if sync.updates != 0 {
		t.Errorf("UpdateInfo called %d times with a cached snapshot", sync.updates)
	}
}

func TestHandleGetSnapshotErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"snapshot failure", services.ErrSnapshotFailed, http.StatusInternalServerError, services.RestartMessage},
		{"sync failure", services.ErrSyncFailed, http.StatusBadGateway, ""},
		{"no address", services.ErrNoAddress, http.StatusConflict, ""},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSnapshotHandler(&stubSync{err: tt.err}, &stubWatch{}, &session.Session{})
			rec := httptest.NewRecorder()
			h.HandleGetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.message != "" {
				var body map[string]string
				json.NewDecoder(rec.Body).Decode(&body)
				if body["error"] != tt.message {
					t.Errorf("error = %q, want %q", body["error"], tt.message)
				}
			}
		})
	}
}

func TestHandleGetWatch(t *testing.T) {
	watch := &stubWatch{}
	h := NewSnapshotHandler(&stubSync{}, watch, &session.Session{})

	rec := httptest.NewRecorder()
	h.HandleGetWatch(rec, httptest.NewRequest(http.MethodGet, "/api/watch", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status without watch = %d, want 404", rec.Code)
	}

	watch.status = &models.WatchStatus{ID: "w1", State: models.WatchSubscribed}
	rec = httptest.NewRecorder()
	h.HandleGetWatch(rec, httptest.NewRequest(http.MethodGet, "/api/watch", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"w1"`) {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCommand(t *testing.T) {
	sess := &session.Session{}
	dispatcher := commands.NewDispatcher(sess, &stubSync{}, &stubWatch{}, nil, &stubSettings{})
	h := NewCommandHandler(dispatcher)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"command": `, http.StatusBadRequest},
		{"unknown command", `{"command": "reboot"}`, http.StatusBadRequest},
		{"stop without watch", `{"command": "stop-watch"}`, http.StatusConflict},
		{"watch without address", `{"command": "watch", "payload": {"itemsId": [1]}}`, http.StatusConflict},
		{"bad address", `{"command": "set-address", "payload": {"address": "nano_bad"}}`, http.StatusBadRequest},
		{"invalid setting", `{"command": "save-changes", "payload": {"changes": [{"setting": "theme", "value": "dark"}]}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleCommand(rec, httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestCommandValidationBody(t *testing.T) {
	h := NewCommandHandler(commands.NewDispatcher(&session.Session{}, &stubSync{}, &stubWatch{}, nil, nil))
	rec := httptest.NewRecorder()
	h.HandleCommand(rec, httptest.NewRequest(http.MethodPost, "/api/commands",
		strings.NewReader(`{"command": "delete-item", "payload": {}}`)))

	var body struct {
		Error      string                   `json:"error"`
		Validation commands.ValidationError `json:"validation"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Validation.Command != "delete-item" || body.Validation.Field != "id" {
		t.Errorf("validation = %+v", body.Validation)
	}
}

type stubSettings struct{}

func (s *stubSettings) Get(ctx context.Context) (model.Settings, error) {
	return model.Settings{}, nil
}

func (s *stubSettings) SaveChanges(ctx context.Context, changes []services.SettingChange) (model.Settings, error) {
	return model.Settings{}, services.ErrInvalidSetting
}

type stubAuth struct {
	configured bool
}

func (s *stubAuth) SetPIN(ctx context.Context, pin string) error {
	return nil
}

func (s *stubAuth) PINConfigured(ctx context.Context) (bool, error) {
	return s.configured, nil
}

func (s *stubAuth) Login(ctx context.Context, pin string) (string, error) {
	if pin != "1234" {
		return "", services.ErrInvalidPIN
	}
	return "good", nil
}

func (s *stubAuth) ValidateToken(token string) error {
	if token != "good" {
		return errors.New("bad token")
	}
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	auth := &stubAuth{}
	h := NewAuthHandler(auth)
	protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		configured bool
		header     string
		status     int
	}{
		{"open until a pin is set", false, "", http.StatusNoContent},
		{"missing token", true, "", http.StatusUnauthorized},
		{"bad token", true, "Bearer nope", http.StatusUnauthorized},
		{"good token", true, "Bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth.configured = tt.configured
			req := httptest.NewRequest(http.MethodGet, "/api/commands", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	h := NewAuthHandler(&stubAuth{configured: true})

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"pin": "1234"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"good"`) {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"pin": "0000"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong pin status = %d, want 401", rec.Code)
	}
}

