package abac

import (
	"errors"
	"reflect"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

var (
	permissionType = reflect.TypeOf(models.Permission{})
	roleType       = reflect.TypeOf(models.Role{})
)

// RegisterInvalidationHooks installs GORM callbacks that bump the cache
// version after any create, update or delete touching a Permission or Role.
// Grant mutations are handled separately with per-subject eviction; role and
// permission definitions affect an unbounded set of subjects, so the global
// version is the only cheap invalidation.
func RegisterInvalidationHooks(db *gorm.DB, versions *VersionStore) error {
	if db == nil {
		return errors.New("abac: invalidation hooks require a db handle")
	}
	if versions == nil {
		return errors.New("abac: invalidation hooks require a version store")
	}

	bump := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil || tx.Statement.Schema == nil {
			return
		}
		switch tx.Statement.Schema.ModelType {
		case permissionType, roleType:
			versions.Bump(tx.Statement.Context)
		}
	}

	if err := db.Callback().Create().After("gorm:create").Register("gatewarden:bump_version_create", bump); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("gatewarden:bump_version_update", bump); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("gatewarden:bump_version_delete", bump)
}
