package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-signing-key", "HS256")
	if err != nil {
		t.Fatal(err)
	}

	token, err := issuer.Issue("alice", []string{"finance_analyst"}, KindAccess, 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	subject, roles, err := issuer.Verify(token, KindAccess)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want alice", subject)
	}
	if len(roles) != 1 || roles[0] != "finance_analyst" {
		t.Errorf("roles = %v, want [finance_analyst]", roles)
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-signing-key", "HS256")
	token, _ := issuer.Issue("alice", []string{"finance_analyst"}, KindRefresh, time.Hour)

	if _, _, err := issuer.Verify(token, KindAccess); err == nil {
		t.Error("expected verify to reject a refresh token presented as access")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-signing-key", "HS256")
	token, _ := issuer.Issue("alice", []string{"finance_analyst"}, KindAccess, -time.Hour)

	if _, _, err := issuer.Verify(token, KindAccess); err == nil {
		t.Error("expected verify to reject an expired token")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuer1, _ := NewTokenIssuer("key-one", "HS256")
	issuer2, _ := NewTokenIssuer("key-two", "HS256")
	token, _ := issuer1.Issue("alice", []string{"finance_analyst"}, KindAccess, time.Hour)

	if _, _, err := issuer2.Verify(token, KindAccess); err == nil {
		t.Error("expected verify to reject a token signed with a different key")
	}
}
