package abac

import (
	"fmt"

	"github.com/gatewarden/gatewarden/internal/models"
)

// AssigneeKind discriminates the grant target variants.
type AssigneeKind string

const (
	// AssigneeRole targets a role; every user holding the role inherits the grant.
	AssigneeRole AssigneeKind = models.AssigneeTypeRole
	// AssigneeUser targets a single user directly.
	AssigneeUser AssigneeKind = models.AssigneeTypeUser
)

// Assignee is the tagged target of a grant. Keeping the kind and id together
// lets lookup and invalidation code switch exhaustively instead of matching
// on loose strings.
type Assignee struct {
	Kind AssigneeKind
	ID   uint
}

// RoleAssignee builds a role-targeted assignee.
func RoleAssignee(id uint) Assignee {
	return Assignee{Kind: AssigneeRole, ID: id}
}

// UserAssignee builds a user-targeted assignee.
func UserAssignee(id uint) Assignee {
	return Assignee{Kind: AssigneeUser, ID: id}
}

// Validate rejects unknown kinds and zero ids.
func (a Assignee) Validate() error {
	switch a.Kind {
	case AssigneeRole, AssigneeUser:
	default:
		return fmt.Errorf("abac: unknown assignee kind %q", a.Kind)
	}
	if a.ID == 0 {
		return fmt.Errorf("abac: assignee id is required")
	}
	return nil
}

func (a Assignee) String() string {
	return fmt.Sprintf("%s/%d", a.Kind, a.ID)
}
