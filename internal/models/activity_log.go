package models

import "gorm.io/datatypes"

// ActivityLog records administrative mutations: who changed what, in which
// tenant, with a free-form properties payload describing the change.
type ActivityLog struct {
	BaseModel

	AccountID   *uint          `gorm:"index" json:"account_id"`
	Event       string         `gorm:"not null;index" json:"event"`
	CauserID    *uint          `gorm:"index" json:"causer_id"`
	SubjectType string         `gorm:"type:varchar(64);index" json:"subject_type"`
	SubjectID   *uint          `json:"subject_id"`
	Properties  datatypes.JSON `json:"properties"`
}
