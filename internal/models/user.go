package models

// User is the subject of permission checks. Role membership is unscoped: a
// user may hold global and tenant-specific roles at the same time; scoping is
// applied at resolution time.
type User struct {
	BaseModel

	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `json:"name"`

	Roles    []Role    `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	Accounts []Account `gorm:"many2many:account_users;" json:"accounts,omitempty"`
}
