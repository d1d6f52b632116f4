package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar day format used for routine, injury and progress dates.
const DateLayout = "2006-01-02"

// ExerciseEntry is one exercise inside a routine, in display order.
type ExerciseEntry struct {
	Name      string `bson:"name" json:"name" binding:"required"`
	Sets      *int   `bson:"sets,omitempty" json:"sets,omitempty" binding:"omitempty,gt=0"`
	Reps      *int   `bson:"reps,omitempty" json:"reps,omitempty" binding:"omitempty,gt=0"`
	Duration  string `bson:"duration,omitempty" json:"duration,omitempty"` // e.g. "1 min", used instead of sets/reps
	VideoKey  string `bson:"videoKey,omitempty" json:"-"`                  // Object key of the demo video, internal use
	Completed bool   `bson:"completed" json:"completed"`
	Note      string `bson:"note" json:"note"`
}

// Routine is a dated list of exercises owned by one student.
// Saving the same day twice produces two documents.
type Routine struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userID" json:"userID"`
	Date      string             `bson:"date" json:"date"`
	Exercises []ExerciseEntry    `bson:"exercises" json:"exercises"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AllCompleted reports whether the routine has exercises and every one is completed.
func (r *Routine) AllCompleted() bool {
	if len(r.Exercises) == 0 {
		return false
	}
	for _, ex := range r.Exercises {
		if !ex.Completed {
			return false
		}
	}
	return true
}
