package rbac

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDeny(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"intern"})
	m := ChunkMetadata{Department: "finance"}
	if e.IsAllowed(m) {
		t.Error("intern should be denied access to finance department chunk")
	}
}

func TestEmptyMetadataDenied(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"admin"})
	if e.IsAllowed(ChunkMetadata{Empty: true}) {
		t.Error("empty metadata must always be denied, even for admin")
	}
}

func TestAdminOverride(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"admin"})
	m := ChunkMetadata{Department: "finance", AllowedRoles: map[string]bool{"finance_analyst": true}}
	if !e.IsAllowed(m) {
		t.Error("admin should be allowed regardless of allowed_roles")
	}
}

func TestExplicitDenyPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"finance_analyst"})
	m := ChunkMetadata{
		Department:   "finance",
		AllowedRoles: map[string]bool{"finance_analyst": true},
		ExplicitDeny: map[string]bool{"finance_analyst": true},
	}
	if e.IsAllowed(m) {
		t.Error("explicit_deny must win over allowed_roles intersection")
	}
}

func TestDepartmentFallback(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"finance_analyst"})
	m := ChunkMetadata{Department: "finance"}
	if !e.IsAllowed(m) {
		t.Error("finance_analyst should be allowed via department+read-permission fallback")
	}
}

func TestAliasResolution(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"fin_analyst"})
	canonical := e.Resolve()
	if !canonical["finance_analyst"] {
		t.Errorf("alias fin_analyst should resolve to finance_analyst, got %v", canonical)
	}
}

func TestAccessibleDepartmentsAdmin(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg, []string{"admin"})
	accessible := e.AccessibleDepartments()
	if len(accessible) != len(cfg.Departments) {
		t.Errorf("admin should see all %d departments, got %d", len(cfg.Departments), len(accessible))
	}
}

func TestValidateCatchesUndefinedAlias(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RoleAliases["broken"] = "does_not_exist"
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to fail for alias pointing at an undefined role")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rbac.yaml")
	const body = `
departments:
  - finance
  - general
role_aliases:
  fin_analyst: finance_analyst
roles:
  admin:
    permissions: ["*"]
  finance_analyst:
    permissions: ["read:finance", "read:general"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.Departments["finance"] || !cfg.Departments["general"] {
		t.Errorf("expected finance and general departments, got %v", cfg.Departments)
	}
	if !cfg.Roles["finance_analyst"].Permissions["read:finance"] {
		t.Errorf("expected finance_analyst to have read:finance, got %v", cfg.Roles["finance_analyst"])
	}
	if cfg.RoleAliases["fin_analyst"] != "finance_analyst" {
		t.Errorf("expected alias fin_analyst -> finance_analyst, got %q", cfg.RoleAliases["fin_analyst"])
	}
}

func TestLoadConfigRejectsInvalidReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rbac.yaml")
	const body = `
departments:
  - finance
roles:
  finance_analyst:
    permissions: ["read:marketing"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected LoadConfig to fail validation for a permission referencing an undefined department")
	}
}

func TestLoadConfigOrDefaultFallsBackWhenMissing(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigOrDefault returned error: %v", err)
	}
	if len(cfg.Roles) != len(DefaultConfig().Roles) {
		t.Errorf("expected fallback to DefaultConfig's role set")
	}
}
