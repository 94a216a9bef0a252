package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTestManager() *TokenManager {
	return NewTokenManager("test-secret-0123456789abcdef0123456789", time.Hour)
}

func TestIssueAndVerify(t *testing.T) {
	tm := newTestManager()
	token, err := tm.Issue("user-1", RolePatient, "Asha Rao")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Role != RolePatient {
		t.Errorf("expected role patient, got %s", claims.Role)
	}
	if claims.Name != "Asha Rao" {
		t.Errorf("expected name Asha Rao, got %s", claims.Name)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tm := newTestManager()
	if _, err := tm.Verify("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm := newTestManager()
	token, err := tm.Issue("user-1", RoleDoctor, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewTokenManager("a-completely-different-secret-value", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret-0123456789abcdef0123456789", -time.Minute)
	token, err := tm.Issue("user-1", RolePatient, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func doRequest(t *testing.T, tm *TokenManager, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	chain := Middleware(tm)(func(c echo.Context) error {
		return c.String(http.StatusOK, UserIDFromContext(c.Request().Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := chain(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestMiddlewareSetsIdentity(t *testing.T) {
	tm := newTestManager()
	token, _ := tm.Issue("user-42", RolePharmacy, "City Pharmacy")

	rec := doRequest(t, tm, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "user-42" {
		t.Errorf("expected user-42 in context, got %q", rec.Body.String())
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	tm := newTestManager()
	rec := doRequest(t, tm, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsBadScheme(t *testing.T) {
	tm := newTestManager()
	rec := doRequest(t, tm, "Basic abc123")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tm := newTestManager()

	run := func(role string, guard echo.MiddlewareFunc) int {
		e := echo.New()
		token, _ := tm.Issue("u", role, "")
		handler := Middleware(tm)(guard(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec.Code
	}

	guard := RequireRole(RoleDoctor)
	if code := run(RoleDoctor, guard); code != http.StatusOK {
		t.Errorf("doctor should pass doctor guard, got %d", code)
	}
	if code := run(RolePatient, guard); code != http.StatusForbidden {
		t.Errorf("patient should fail doctor guard, got %d", code)
	}
	if code := run(RoleAdmin, guard); code != http.StatusOK {
		t.Errorf("admin should pass every guard, got %d", code)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Error("expected password to match its hash")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("expected mismatch for wrong password")
	}
}

func TestPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected error for short password")
	}
}
