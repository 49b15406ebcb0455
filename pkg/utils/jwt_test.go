package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTManager_RoundTripIdentity(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	tenantID, userID := uuid.New(), uuid.New()

	token, err := manager.GenerateAccessToken(tenantID, userID, "ana@example.com",
		[]string{"admin"}, []string{"approve-expense-reports"})
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.TenantID != tenantID || claims.UserID != userID {
		t.Errorf("identity mismatch: got tenant %s user %s", claims.TenantID, claims.UserID)
	}
	if !claims.HasPermission("approve-expense-reports") {
		t.Error("expected approve permission")
	}
	if claims.HasPermission("manage-expense-reports") {
		t.Error("unexpected manage permission")
	}
	if !claims.HasAnyRole("super-admin", "admin") {
		t.Error("expected admin role")
	}
}

func TestJWTManager_RejectsForeignSignature(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour)
	verifier := NewJWTManager("secret-b", time.Hour)

	token, err := issuer.GenerateAccessToken(uuid.New(), uuid.New(), "", nil, nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := verifier.ValidateAccessToken(token); err == nil {
		t.Error("expected signature error")
	}
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)
	token, err := manager.GenerateAccessToken(uuid.New(), uuid.New(), "", nil, nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("expected expiry error")
	}
}

func TestParseUUIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids, err := ParseUUIDs([]string{a.String(), b.String(), a.String()})
	if err != nil {
		t.Fatalf("ParseUUIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Errorf("ParseUUIDs() = %v", ids)
	}
	if _, err := ParseUUIDs([]string{"nope"}); err == nil {
		t.Error("expected parse error")
	}
}
