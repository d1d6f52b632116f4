package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DayMark is the calendar marker for a completed day.
type DayMark struct {
	Marked bool `bson:"marked" json:"marked"`
}

// Progress is the single progress record of a student. Its ID is the student's id.
type Progress struct {
	ID                primitive.ObjectID `bson:"_id" json:"id"`
	WeeklyProgress    [7]float64         `bson:"weeklyProgress" json:"weeklyProgress"`
	MonthlyGoals      [3]float64         `bson:"monthlyGoals" json:"monthlyGoals"`
	RoutineComparison [4]float64         `bson:"routineComparison" json:"routineComparison"`
	CompletedDates    map[string]DayMark `bson:"completedDates" json:"completedDates"`
}

// NewProgress returns the zero-valued progress record for a student.
func NewProgress(userID primitive.ObjectID) *Progress {
	return &Progress{
		ID:             userID,
		CompletedDates: map[string]DayMark{},
	}
}

// ProgressSnapshot is one delivery of a watched progress document.
// Exists is false when the student has no progress document yet.
type ProgressSnapshot struct {
	Progress *Progress
	Exists   bool
	Err      error
}

// TrainersSnapshot is one delivery of the watched trainers collection.
type TrainersSnapshot struct {
	Trainers []Trainer
	Err      error
}
