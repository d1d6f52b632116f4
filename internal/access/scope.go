package access

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
)

// StudentLister resolves the students assigned to a trainer.
type StudentLister interface {
	ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Student, error)
}

// Scope applies ownership on top of the role table. A trainer's student set
// is resolved from the store on every call, never cached.
type Scope struct {
	students StudentLister
}

func NewScope(students StudentLister) *Scope {
	return &Scope{students: students}
}

// OwnedStudentIDs returns the student ids whose records p may access.
// Adminmasters own no student records.
func (s *Scope) OwnedStudentIDs(ctx context.Context, p Principal) (map[primitive.ObjectID]struct{}, error) {
	switch p.Role {
	case domain.RoleStudent:
		return map[primitive.ObjectID]struct{}{p.ID: {}}, nil
	case domain.RoleTrainer:
		students, err := s.students.ListByTrainerID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve students of trainer %s: %w", p.ID.Hex(), err)
		}
		ids := make(map[primitive.ObjectID]struct{}, len(students))
		for _, st := range students {
			ids[st.ID] = struct{}{}
		}
		return ids, nil
	case domain.RoleAdmin:
		return map[primitive.ObjectID]struct{}{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnrecognizedRole, p.Role)
}

// AuthorizeOwner checks the role table and that ownerID is within p's reach.
// For students ownerID is the owning student; for passwords it is the identity.
func (s *Scope) AuthorizeOwner(ctx context.Context, p Principal, action Action, resource Resource, ownerID primitive.ObjectID) error {
	if err := Allow(p.Role, action, resource); err != nil {
		return err
	}
	if p.Role == domain.RoleAdmin {
		// Global visibility over trainers, students and assignments.
		return nil
	}
	if resource == ResourcePassword || resource == ResourceAccount {
		if ownerID != p.ID {
			return fmt.Errorf("%w: %s of another account", ErrForbidden, resource)
		}
		return nil
	}

	owned, err := s.OwnedStudentIDs(ctx, p)
	if err != nil {
		return err
	}
	if _, ok := owned[ownerID]; !ok {
		return fmt.Errorf("%w: %s of student %s", ErrForbidden, resource, ownerID.Hex())
	}
	return nil
}

// FilterOwned drops the items whose owner p cannot read.
func FilterOwned[T any](ctx context.Context, s *Scope, p Principal, resource Resource, items []T, owner func(T) primitive.ObjectID) ([]T, error) {
	if err := Allow(p.Role, ActionRead, resource); err != nil {
		return nil, err
	}
	if p.Role == domain.RoleAdmin {
		return items, nil
	}
	owned, err := s.OwnedStudentIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := owned[owner(item)]; ok {
			kept = append(kept, item)
		}
	}
	return kept, nil
}
