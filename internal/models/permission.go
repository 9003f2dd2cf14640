package models

// PermissionKind determines how a permission expands during resolution.
type PermissionKind string

const (
	// KindFlag is a binary permission: granted or not.
	KindFlag PermissionKind = "flag"
	// KindCRUD is a bundle expanding to create/read/update/delete actions.
	KindCRUD PermissionKind = "crud"
)

// Valid reports whether the kind is one of the known values.
func (k PermissionKind) Valid() bool {
	return k == KindFlag || k == KindCRUD
}

// Permission is a named capability. Flag permissions resolve to their bare
// name; crud permissions expand into "<name>:<action>" strings.
type Permission struct {
	BaseModel

	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Kind        PermissionKind `gorm:"type:varchar(16);not null;default:flag" json:"kind"`
	Description string         `json:"description"`

	Assignments []AssignedPermission `gorm:"foreignKey:PermissionID" json:"assignments,omitempty"`
}
