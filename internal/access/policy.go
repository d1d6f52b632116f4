// Package access holds the role permission table and the ownership scoping
// applied to every student-owned record.
package access

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
)

var (
	ErrForbidden        = errors.New("access denied")
	ErrUnrecognizedRole = domain.ErrUnrecognizedRole
)

// Principal is the caller of an operation.
type Principal struct {
	ID   primitive.ObjectID
	Role domain.Role
}

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Resource string

const (
	ResourceAccount           Resource = "account"
	ResourceStudent           Resource = "student"
	ResourceTrainer           Resource = "trainer"
	ResourceRoutine           Resource = "routine"
	ResourceRoutineCompletion Resource = "routine-completion" // completed flags and notes
	ResourceInjury            Resource = "injury"
	ResourceInjuryComment     Resource = "injury-comment"
	ResourceProgress          Resource = "progress"
	ResourceAssignment        Resource = "assignment" // Student.trainerID
	ResourcePassword          Resource = "password"
)

type grant struct {
	action   Action
	resource Resource
}

var permissions = map[domain.Role]map[grant]bool{
	domain.RoleStudent: {
		{ActionRead, ResourceAccount}:             true,
		{ActionRead, ResourceStudent}:             true,
		{ActionRead, ResourceRoutine}:             true,
		{ActionRead, ResourceInjury}:              true,
		{ActionRead, ResourceProgress}:            true,
		{ActionCreate, ResourceInjury}:            true,
		{ActionCreate, ResourceInjuryComment}:     true,
		{ActionCreate, ResourceRoutine}:           true,
		{ActionUpdate, ResourceProgress}:          true,
		{ActionUpdate, ResourceRoutineCompletion}: true,
	},
	domain.RoleTrainer: {
		{ActionRead, ResourceStudent}:         true,
		{ActionRead, ResourceRoutine}:         true,
		{ActionRead, ResourceInjury}:          true,
		{ActionRead, ResourceProgress}:        true,
		{ActionCreate, ResourceRoutine}:       true,
		{ActionCreate, ResourceInjury}:        true,
		{ActionCreate, ResourceInjuryComment}: true,
		{ActionUpdate, ResourceRoutine}:       true,
		{ActionUpdate, ResourceInjury}:        true,
		{ActionUpdate, ResourcePassword}:      true,
		{ActionDelete, ResourceRoutine}:       true,
	},
	domain.RoleAdmin: {
		{ActionRead, ResourceTrainer}:      true,
		{ActionRead, ResourceStudent}:      true,
		{ActionCreate, ResourceTrainer}:    true,
		{ActionUpdate, ResourceAssignment}: true,
		{ActionDelete, ResourceTrainer}:    true,
	},
}

// Allow checks the role table only, without ownership.
func Allow(role domain.Role, action Action, resource Resource) error {
	grants, ok := permissions[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnrecognizedRole, role)
	}
	if !grants[grant{action, resource}] {
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, role, action, resource)
	}
	return nil
}
