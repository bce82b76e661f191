package rbac

import "strings"

// ChunkMetadata is the subset of vectorstore.Metadata the RBAC engine needs
// to decide access. Kept as its own small type so this package has no
// dependency on vectorstore (spec §3's ownership rule: other components only
// read metadata through C4, but C5 only needs to evaluate it).
type ChunkMetadata struct {
	Department   string
	AllowedRoles map[string]bool
	ExplicitDeny map[string]bool
	Empty        bool
}

// Engine is constructed per-request from the authenticated caller's raw role
// list (spec §3 Ownership, §5: "per-request... so its caches are
// request-scoped and need no synchronization").
type Engine struct {
	cfg      *Config
	rawRoles []string

	canonical   map[string]bool // memoized Resolve() result
	permissions map[string]bool // memoized EffectivePermissions() result
	accessible  map[string]bool // memoized AccessibleDepartments() result
}

// New constructs an Engine for one request's caller.
func New(cfg *Config, rawRoles []string) *Engine {
	return &Engine{cfg: cfg, rawRoles: rawRoles}
}

// Resolve canonicalizes the caller's raw roles and transitively expands
// inherits, cycle-safe (spec §4.5). Cached per-instance.
func (e *Engine) Resolve() map[string]bool {
	if e.canonical != nil {
		return e.canonical
	}

	result := map[string]bool{}
	visited := map[string]bool{}

	var expand func(canonical string)
	expand = func(canonical string) {
		if visited[canonical] {
			return
		}
		visited[canonical] = true
		def, ok := e.cfg.Roles[canonical]
		if !ok {
			return
		}
		result[canonical] = true
		for _, parent := range def.Inherits {
			expand(parent)
		}
	}

	for _, raw := range e.rawRoles {
		canonical := e.canonicalize(raw)
		expand(canonical)
	}

	e.canonical = result
	return result
}

// canonicalize maps a raw role name to its canonical form: role_aliases
// lookup, else lowercase + spaces-to-underscores fallback (spec §4.5).
func (e *Engine) canonicalize(raw string) string {
	if canonical, ok := e.cfg.RoleAliases[raw]; ok {
		return canonical
	}
	lowered := strings.ToLower(raw)
	if _, ok := e.cfg.Roles[lowered]; ok {
		return lowered
	}
	return strings.ReplaceAll(lowered, " ", "_")
}

// EffectivePermissions unions roles[r].permissions across the resolved
// canonical set; a `*` anywhere collapses the whole set to {*} (spec §4.5).
func (e *Engine) EffectivePermissions() map[string]bool {
	if e.permissions != nil {
		return e.permissions
	}

	perms := map[string]bool{}
	for canonical := range e.Resolve() {
		def, ok := e.cfg.Roles[canonical]
		if !ok {
			continue
		}
		for p := range def.Permissions {
			perms[p] = true
		}
	}
	if perms["*"] {
		perms = map[string]bool{"*": true}
	}

	e.permissions = perms
	return perms
}

// HasPermission reports whether perm is granted: `*` implies everything
// (spec §4.5).
func (e *Engine) HasPermission(perm string) bool {
	perms := e.EffectivePermissions()
	return perms["*"] || perms[perm]
}

// IsAdmin reports whether the caller's canonical role set includes "admin".
func (e *Engine) IsAdmin() bool {
	return e.Resolve()["admin"]
}

// AccessibleDepartments returns the full configured department set for an
// admin caller, or {d : "read:"+d in permissions} otherwise (spec §4.5).
// Cached.
func (e *Engine) AccessibleDepartments() map[string]bool {
	if e.accessible != nil {
		return e.accessible
	}

	if e.EffectivePermissions()["*"] || e.IsAdmin() {
		out := map[string]bool{}
		for d := range e.cfg.Departments {
			out[d] = true
		}
		e.accessible = out
		return out
	}

	out := map[string]bool{}
	for d := range e.cfg.Departments {
		if e.HasPermission("read:" + d) {
			out[d] = true
		}
	}
	e.accessible = out
	return out
}

// IsAllowed applies spec §4.5's rule sequence, first-match-wins, default
// deny. All decisions for which chunks are returned to the user must go
// through this method (spec §4.5, §8 RBAC-before-ranking).
func (e *Engine) IsAllowed(m ChunkMetadata) bool {
	// 1. Empty/missing metadata -> deny.
	if m.Empty {
		return false
	}

	canonical := e.Resolve()

	// 3. Admin unconditional override.
	if canonical["admin"] {
		return true
	}

	// 4-5. allowed_roles intersection, with explicit_deny precedence.
	if len(m.AllowedRoles) > 0 {
		intersects := false
		for r := range m.AllowedRoles {
			if canonical[r] {
				intersects = true
				break
			}
		}
		if intersects {
			for r := range m.ExplicitDeny {
				if canonical[r] {
					return false
				}
			}
			return true
		}
	}

	// 6. Department + read-permission fallback.
	if m.Department != "" && e.HasPermission("read:"+m.Department) {
		return true
	}

	// 7. Default deny.
	return false
}
