package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func TestIdentity_ValidHeaders(t *testing.T) {
	var got model.Requester
	var ok bool

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = RequesterFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/my", nil)
	req.Header.Set(HeaderUserID, "f4d1f9a0-1b2c-4d5e-8f90-1a2b3c4d5e6f")
	req.Header.Set(HeaderUserRole, model.RoleAdmin)
	w := httptest.NewRecorder()

	Identity(testLogger())(next).ServeHTTP(w, req)

	if !ok {
		t.Fatal("requester missing from context")
	}
	if got.ID != "f4d1f9a0-1b2c-4d5e-8f90-1a2b3c4d5e6f" {
		t.Errorf("requester id = %q", got.ID)
	}
	if !got.IsAdmin() {
		t.Error("admin role header should yield admin requester")
	}
}

func TestIdentity_UnknownRoleDowngradesToUser(t *testing.T) {
	var got model.Requester

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = RequesterFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "f4d1f9a0-1b2c-4d5e-8f90-1a2b3c4d5e6f")
	req.Header.Set(HeaderUserRole, "Superuser")
	w := httptest.NewRecorder()

	Identity(testLogger())(next).ServeHTTP(w, req)

	if got.Role != model.RoleUser {
		t.Errorf("unknown role should downgrade to %s, got %s", model.RoleUser, got.Role)
	}
}

func TestIdentity_RejectsMissingOrMalformedID(t *testing.T) {
	tests := []struct {
		name   string
		userID string
	}{
		{"missing header", ""},
		{"not a uuid", "bob"},
		{"truncated uuid", "f4d1f9a0-1b2c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.userID != "" {
				req.Header.Set(HeaderUserID, tt.userID)
			}
			w := httptest.NewRecorder()

			Identity(testLogger())(next).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
			if called {
				t.Error("handler must not run without a valid identity")
			}
		})
	}
}
