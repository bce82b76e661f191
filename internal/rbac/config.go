// Package rbac implements C5: role resolution with inheritance, permission
// computation, and per-chunk allow/deny evaluation (spec §4.5).
package rbac

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// RoleDef is one entry in RBACConfig.roles (spec §3).
type RoleDef struct {
	Permissions map[string]bool
	Inherits    []string
}

// Config is process-wide state, loaded at startup and immutable thereafter
// (spec §3 RBACConfig).
type Config struct {
	Roles        map[string]RoleDef
	RoleAliases  map[string]string
	Departments  map[string]bool
}

// Validate checks the closed-world invariants SPEC_FULL §C adds on top of
// spec.md: every alias must resolve to a known role, and every role's
// inherits list must reference known roles. Config load fails fast rather
// than discovering a typo at first request.
func (c *Config) Validate() error {
	for alias, canonical := range c.RoleAliases {
		if _, ok := c.Roles[canonical]; !ok {
			return fmt.Errorf("rbac: alias %q points to undefined role %q", alias, canonical)
		}
	}
	for name, def := range c.Roles {
		for _, parent := range def.Inherits {
			if _, ok := c.Roles[parent]; !ok {
				return fmt.Errorf("rbac: role %q inherits undefined role %q", name, parent)
			}
		}
		for perm := range def.Permissions {
			if perm == "*" {
				continue
			}
			if strings.HasPrefix(perm, "read:") {
				dept := strings.TrimPrefix(perm, "read:")
				if !c.Departments[dept] {
					return fmt.Errorf("rbac: role %q has permission for undefined department %q", name, dept)
				}
			}
		}
	}
	return nil
}

// rawConfig is the on-disk shape of rbac.yaml (spec §6.4's rbac_config_path):
// permissions as a flat string list rather than a set, which is friendlier
// to hand-edit than the in-memory map representation.
type rawConfig struct {
	Roles map[string]struct {
		Permissions []string `mapstructure:"permissions"`
		Inherits    []string `mapstructure:"inherits"`
	} `mapstructure:"roles"`
	RoleAliases map[string]string `mapstructure:"role_aliases"`
	Departments []string          `mapstructure:"departments"`
}

// LoadConfig reads RBACConfig from path (YAML or JSON, dispatched by
// extension via viper, matching internal/config's loading style) and
// validates it before returning. When the file exists it is the only source
// of roles, permissions, and departments; LoadConfigOrDefault falls back to
// the compiled-in DefaultConfig only when it is absent (spec §6.4,
// SPEC_FULL §C).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("rbac: read config file %s: %w", path, err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("rbac: decode config file %s: %w", path, err)
	}

	cfg := &Config{
		Roles:       make(map[string]RoleDef, len(raw.Roles)),
		RoleAliases: raw.RoleAliases,
		Departments: make(map[string]bool, len(raw.Departments)),
	}
	for _, d := range raw.Departments {
		cfg.Departments[d] = true
	}
	for name, r := range raw.Roles {
		perms := make(map[string]bool, len(r.Permissions))
		for _, p := range r.Permissions {
			perms[p] = true
		}
		cfg.Roles[name] = RoleDef{Permissions: perms, Inherits: r.Inherits}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault loads RBACConfig from path, falling back to
// DefaultConfig only when path does not exist — the documented bootstrap
// mode for a fresh deployment that has not yet provisioned rbac.yaml. Any
// other read/parse/validation error is returned rather than silently masked.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig is a small built-in configuration matching the worked
// examples in spec §8's literal end-to-end scenarios, usable standalone and
// in tests without a config file.
func DefaultConfig() *Config {
	cfg := &Config{
		Roles: map[string]RoleDef{
			"admin":           {Permissions: map[string]bool{"*": true}},
			"finance_analyst": {Permissions: map[string]bool{"read:finance": true, "read:general": true}},
			"marketing_lead":  {Permissions: map[string]bool{"read:marketing": true, "read:general": true}},
			"hr_manager":      {Permissions: map[string]bool{"read:hr": true, "read:general": true}},
			"engineer":        {Permissions: map[string]bool{"read:engineering": true, "read:general": true}},
			"intern":          {Permissions: map[string]bool{"read:general": true}},
		},
		RoleAliases: map[string]string{
			"fin_analyst": "finance_analyst",
		},
		Departments: map[string]bool{
			"finance": true, "marketing": true, "hr": true,
			"engineering": true, "general": true,
		},
	}
	return cfg
}
