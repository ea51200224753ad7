package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinRequest records a user asking to join a private group.
// Approved requests are kept as history; only pending ones gate new joins.
type JoinRequest struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"groupId"`
	UserID     string             `bson:"user_id" json:"userId"`
	Status     RequestStatus      `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	ApprovedAt *time.Time         `bson:"approved_at,omitempty" json:"approvedAt,omitempty"`
	ApprovedBy string             `bson:"approved_by,omitempty" json:"approvedBy,omitempty"`
}
