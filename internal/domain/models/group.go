package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a community group that patients and staff can join to talk
// about a shared topic.
//
// NOTE:
//   - CreatorID is an opaque identity string supplied by the auth layer.
//     It is set once at creation and never updated.
//   - Membership is not embedded; it lives in the community_memberships
//     collection (the creator also has a row there with role "creator").
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Topic       string             `bson:"topic,omitempty" json:"topic,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Visibility  Visibility         `bson:"visibility" json:"visibility"`
	CreatorID   string             `bson:"creator_id" json:"creatorId"`

	// GuidelinesHTML is creator-authored rich text, sanitized before storage.
	GuidelinesHTML string `bson:"guidelines_html,omitempty" json:"guidelinesHtml,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsPrivate reports whether joining the group requires creator approval.
func (g Group) IsPrivate() bool {
	return g.Visibility == VisibilityPrivate
}
