package models

import "strings"

// Visibility controls how a group is joined.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility maps user input to a Visibility. Only the exact value
// "private" yields a private group; anything else is public.
func ParseVisibility(s string) Visibility {
	if strings.TrimSpace(s) == string(VisibilityPrivate) {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// Valid reports whether v is one of the known visibilities.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// MemberRole is a member's role within a group.
type MemberRole string

const (
	RoleCreator MemberRole = "creator"
	RoleMember  MemberRole = "member"
)

// ParseMemberRole returns the role for s, defaulting to RoleMember.
func ParseMemberRole(s string) MemberRole {
	if s == string(RoleCreator) {
		return RoleCreator
	}
	return RoleMember
}

func (r MemberRole) Valid() bool {
	return r == RoleCreator || r == RoleMember
}

// RequestStatus is the state of a JoinRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
)

// ParseRequestStatus returns the status for s, defaulting to StatusPending.
func ParseRequestStatus(s string) RequestStatus {
	if s == string(StatusApproved) {
		return StatusApproved
	}
	return StatusPending
}

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved
}
