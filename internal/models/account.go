package models

import "gorm.io/datatypes"

// Account is the tenancy scoping unit. Roles and grants referencing a nil
// account apply globally; those referencing an account apply only inside it.
type Account struct {
	BaseModel

	Name     string         `gorm:"not null" json:"name"`
	Slug     string         `gorm:"uniqueIndex;not null" json:"slug"`
	Plan     string         `json:"plan"`
	Metadata datatypes.JSON `json:"metadata"`

	Users []User `gorm:"many2many:account_users;" json:"users,omitempty"`
	Roles []Role `gorm:"foreignKey:AccountID" json:"roles,omitempty"`
}
