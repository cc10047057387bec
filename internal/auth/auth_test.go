package auth

import "testing"

func TestServicePasswordRoundTrip(t *testing.T) {
	svc := NewService(Config{JWTSecret: "test-secret"})

	hash, err := svc.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := svc.ComparePassword(hash, "correct-horse"); err != nil {
		t.Errorf("ComparePassword() with the right password failed: %v", err)
	}
	if err := svc.ComparePassword(hash, "wrong-password"); err == nil {
		t.Error("ComparePassword() with the wrong password succeeded, want an error")
	}
}

func TestServiceTokenRoundTrip(t *testing.T) {
	svc := NewService(Config{JWTSecret: "test-secret"})

	token, err := svc.GenerateToken(1, "alice", RoleOperator)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 1 || claims.Username != "alice" || claims.Role != RoleOperator {
		t.Errorf("claims = %+v, want UserID=1 Username=alice Role=%s", claims, RoleOperator)
	}
}

func TestServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewService(Config{JWTSecret: "issuer-secret"})
	verifier := NewService(Config{JWTSecret: "different-secret"})

	token, err := issuer.GenerateToken(1, "alice", RoleViewer)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("ValidateToken() with a mismatched secret succeeded, want an error")
	}
}

func TestHasRoleHierarchy(t *testing.T) {
	tests := []struct {
		name     string
		userRole string
		required string
		want     bool
	}{
		{"admin satisfies operator", RoleAdmin, RoleOperator, true},
		{"operator satisfies viewer", RoleOperator, RoleViewer, true},
		{"viewer does not satisfy operator", RoleViewer, RoleOperator, false},
		{"guest satisfies guest", RoleGuest, RoleGuest, true},
		{"unknown role satisfies nothing", "bogus", RoleGuest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasRole(tt.userRole, tt.required); got != tt.want {
				t.Errorf("HasRole(%q, %q) = %v, want %v", tt.userRole, tt.required, got, tt.want)
			}
		})
	}
}

func TestCanWriteStateAndCanQuery(t *testing.T) {
	if !CanWriteState(RoleAdmin) {
		t.Error("expected admin to be able to write state")
	}
	if CanWriteState(RoleViewer) {
		t.Error("expected viewer to be unable to write state")
	}
	if !CanQuery(RoleViewer) {
		t.Error("expected viewer to be able to query")
	}
	if CanQuery(RoleGuest) {
		t.Error("expected guest to be unable to query")
	}
}
