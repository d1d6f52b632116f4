package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the profile document stored in the users collection.
// Its ID is the identity id issued by the identity provider.
type Account struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      Role               `bson:"role" json:"role"` // Immutable after creation
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (a *Account) IsStudent() bool {
	return a.Role == RoleStudent
}

func (a *Account) IsTrainer() bool {
	return a.Role == RoleTrainer
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Student is the student profile stored in the students collection, keyed by the account id.
type Student struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Age      int                `bson:"age" json:"age"`
	Gender   string             `bson:"gender" json:"gender"`
	WeightKg float64            `bson:"weightKg" json:"weightKg"`
	HeightCm float64            `bson:"heightCm" json:"heightCm"`

	// Unassigned when nil. Set by an adminmaster's assignment.
	TrainerID *primitive.ObjectID `bson:"trainerID,omitempty" json:"trainerID,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AssignedTo reports whether the student is assigned to the given trainer.
func (s *Student) AssignedTo(trainerID primitive.ObjectID) bool {
	return s.TrainerID != nil && *s.TrainerID == trainerID
}

// Trainer is the trainer profile stored in the trainers collection, keyed by the account id.
type Trainer struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Age          int                `bson:"age" json:"age"`
	Phone        string             `bson:"phone" json:"phone"`
	Specialty    string             `bson:"specialty" json:"specialty"`
	Availability string             `bson:"availability" json:"availability"` // e.g. "Mon-Fri, 9am - 6pm"
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Credential is the identity provider's record for an email/password identity.
type Credential struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	LastSignInAt time.Time          `bson:"lastSignInAt" json:"lastSignInAt"`
}
