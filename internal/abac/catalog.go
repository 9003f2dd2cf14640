package abac

import (
	"github.com/gatewarden/gatewarden/internal/models"
)

// UniversalPermission is the sentinel returned for zeus bypass: it satisfies
// every permission check.
const UniversalPermission = "*"

// CRUDActions is the fixed action set a crud permission expands into.
var CRUDActions = []string{"create", "read", "update", "delete"}

// FlagStates are the two states a flag permission can be assigned with.
var FlagStates = []string{"on", "off"}

// ActionPermission builds the expanded permission string for one action.
func ActionPermission(name, action string) string {
	return name + ":" + action
}

// Expand returns the permission strings a permission definition stands for.
// Flag permissions resolve to their bare name; crud permissions expand into
// the four action-scoped strings.
func Expand(name string, kind models.PermissionKind) []string {
	if kind != models.KindCRUD {
		return []string{name}
	}

	expanded := make([]string, 0, len(CRUDActions))
	for _, action := range CRUDActions {
		expanded = append(expanded, ActionPermission(name, action))
	}
	return expanded
}

// AvailableActions lists the action tokens an administrative UI can offer
// when assigning a permission of the given kind.
func AvailableActions(kind models.PermissionKind) []string {
	if kind == models.KindCRUD {
		return append([]string(nil), CRUDActions...)
	}
	return append([]string(nil), FlagStates...)
}

// ExpandGrant applies a grant's access restriction to its permission and
// returns the permission strings the grant actually confers.
//
// A grant whose permission reference is dangling contributes nothing rather
// than failing the whole resolution. For flag permissions the policy is
// deny-overrides: any restriction containing "off" silences the grant, any
// other restriction still grants. For crud permissions the restriction is an
// allowlist: only the listed tokens are conferred, and tokens are not
// validated against the CRUD set, so unknown tokens expand to their literal
// "name:token" form.
func ExpandGrant(grant *models.AssignedPermission) []string {
	if grant == nil || grant.Permission == nil {
		return nil
	}
	perm := grant.Permission

	if perm.Kind == models.KindCRUD {
		if !grant.HasAccessRestriction() {
			return Expand(perm.Name, perm.Kind)
		}
		tokens := grant.AccessTokens()
		expanded := make([]string, 0, len(tokens))
		for _, token := range tokens {
			expanded = append(expanded, ActionPermission(perm.Name, token))
		}
		return expanded
	}

	if !grant.HasAccessRestriction() {
		return []string{perm.Name}
	}
	for _, token := range grant.AccessTokens() {
		if token == "off" {
			return nil
		}
	}
	return []string{perm.Name}
}
