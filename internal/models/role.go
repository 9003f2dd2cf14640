package models

// ZeusLevel marks a role as a full-access bypass.
type ZeusLevel string

const (
	// ZeusNone is a regular role with no bypass.
	ZeusNone ZeusLevel = "none"
	// ZeusTenant bypasses all checks inside the role's own account.
	ZeusTenant ZeusLevel = "tenant"
	// ZeusSystem bypasses all checks everywhere.
	ZeusSystem ZeusLevel = "system"
)

// Valid reports whether the level is one of the known values.
func (z ZeusLevel) Valid() bool {
	switch z {
	case ZeusNone, ZeusTenant, ZeusSystem:
		return true
	}
	return false
}

// Role groups grants for assignment to users. A nil AccountID makes the role
// global; otherwise it only applies while its account is the active tenant.
// Names are unique within their account scope.
type Role struct {
	BaseModel

	AccountID   *uint     `gorm:"index;uniqueIndex:idx_roles_scope_name" json:"account_id"`
	Account     *Account  `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`
	Name        string    `gorm:"not null;uniqueIndex:idx_roles_scope_name" json:"name"`
	ZeusLevel   ZeusLevel `gorm:"type:varchar(16);not null;default:none" json:"zeus_level"`
	Description string    `json:"description"`

	Users []User `gorm:"many2many:user_roles;" json:"users,omitempty"`
}

// IsSystemZeus reports whether the role bypasses every check.
func (r *Role) IsSystemZeus() bool {
	return r.ZeusLevel == ZeusSystem
}

// IsTenantZeus reports whether the role bypasses checks within its own account.
func (r *Role) IsTenantZeus() bool {
	return r.ZeusLevel == ZeusTenant
}

// AppliesTo reports whether the role is effective under the given tenant
// context. Global roles apply everywhere, including outside any tenant.
func (r *Role) AppliesTo(accountID *uint) bool {
	if r.AccountID == nil {
		return true
	}
	return accountID != nil && *r.AccountID == *accountID
}
