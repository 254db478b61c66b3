package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue(42, "redmine-api-key", RoleMLOwner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d", claims.UserID)
	}
	if claims.APIKey != "redmine-api-key" {
		t.Errorf("APIKey = %q", claims.APIKey)
	}
	if claims.Role != RoleMLOwner {
		t.Errorf("Role = %q", claims.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	a, _ := NewManager("secret-a", time.Hour)
	b, _ := NewManager("secret-b", time.Hour)

	token, err := a.Issue(1, "key", RolePoliceOfficer)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m, _ := NewManager("secret", time.Nanosecond)
	token, err := m.Issue(1, "key", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseRejectsMissingAPIKey(t *testing.T) {
	m, _ := NewManager("secret", time.Hour)
	token, err := m.Issue(1, "", RoleGSMBOfficer)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = m.Parse(token)
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("err = %v, want missing API key error", err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
