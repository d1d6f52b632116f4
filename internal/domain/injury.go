package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Injury is a reported injury owned by one student. Comments are append-only.
type Injury struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userID" json:"userID"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Date        string             `bson:"date" json:"date"`
	Comments    []string           `bson:"comments" json:"comments"`
	ReportedBy  primitive.ObjectID `bson:"reportedBy" json:"reportedBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
