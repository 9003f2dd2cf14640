package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Assignee type discriminators stored on AssignedPermission rows.
const (
	AssigneeTypeRole = "role"
	AssigneeTypeUser = "user"
)

// AssignedPermission links one permission to one assignee (a role or a user),
// optionally scoped to an account and optionally narrowed by an access
// restriction. At most one row exists per
// (permission, assignee_id, assignee_type, account) tuple; re-granting
// updates the existing row. The composite unique index enforces this for
// account-scoped rows; NULL account rows are never equal under SQL unique
// semantics, so the global scope stays app-enforced in the upsert path.
type AssignedPermission struct {
	BaseModel

	AccountID    *uint       `gorm:"index;uniqueIndex:uniq_permission_assignment" json:"account_id"`
	Account      *Account    `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`
	PermissionID uint        `gorm:"not null;index;uniqueIndex:uniq_permission_assignment" json:"permission_id"`
	Permission   *Permission `gorm:"constraint:OnDelete:CASCADE" json:"permission,omitempty"`

	AssigneeID   uint   `gorm:"not null;index:idx_assignee;uniqueIndex:uniq_permission_assignment" json:"assignee_id"`
	AssigneeType string `gorm:"type:varchar(16);not null;index:idx_assignee;uniqueIndex:uniq_permission_assignment" json:"assignee_type"`

	// Access narrows what the grant confers: a JSON array of action tokens
	// for crud permissions, or ["off"] to deny a flag permission. NULL means
	// the grant is unrestricted.
	Access datatypes.JSON `json:"access"`
}

// TableName overrides the default table name for GORM.
func (AssignedPermission) TableName() string {
	return "assigned_permissions"
}

// HasAccessRestriction reports whether a restriction set is present. An
// explicit empty array counts as a restriction (it grants nothing for crud
// kinds), which is why NULL and [] must stay distinguishable.
func (a *AssignedPermission) HasAccessRestriction() bool {
	raw := string(a.Access)
	return raw != "" && raw != "null"
}

// AccessTokens decodes the restriction set. It returns nil when no
// restriction is present or the stored value is unreadable.
func (a *AssignedPermission) AccessTokens() []string {
	if !a.HasAccessRestriction() {
		return nil
	}
	var tokens []string
	if err := json.Unmarshal(a.Access, &tokens); err != nil {
		return nil
	}
	return tokens
}
