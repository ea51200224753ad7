package community

import (
	"context"
	"errors"
	"strings"

	joinrequeststore "github.com/dalemusser/carecommunity/internal/app/store/joinrequests"
	membershipstore "github.com/dalemusser/carecommunity/internal/app/store/memberships"
	"github.com/dalemusser/carecommunity/internal/app/system/htmlsanitize"
	"github.com/dalemusser/carecommunity/internal/app/system/paging"
	"github.com/dalemusser/carecommunity/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CreateGroupInput is the caller-supplied part of a new group.
// Visibility is free text; only "private" makes a private group.
// Guidelines may contain basic HTML; everything else is plain text and is
// stored as sent, apart from trimming.
type CreateGroupInput struct {
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	Guidelines  string `json:"guidelines"`
}

// GroupSummary is a group as seen by a particular caller.
type GroupSummary struct {
	models.Group
	MemberCount int  `json:"memberCount"`
	IsMember    bool `json:"isMember"`
	IsCreator   bool `json:"isCreator"`
}

// GroupDetail is the result of GetGroup. Members and Messages are empty
// unless the caller is a member; PendingRequests is only filled for the
// creator.
type GroupDetail struct {
	GroupSummary
	Members         []models.GroupMembership `json:"members"`
	Messages        []models.Message         `json:"messages"`
	RequestPending  bool                     `json:"requestPending"`
	PendingRequests []models.JoinRequest     `json:"pendingRequests,omitempty"`
}

// JoinStatus is the outcome of JoinGroup.
type JoinStatus string

const (
	JoinJoined        JoinStatus = "joined"
	JoinAlreadyMember JoinStatus = "already_member"
	JoinPending       JoinStatus = "pending"
)

type JoinResult struct {
	Status    JoinStatus `json:"status"`
	Message   string     `json:"message"`
	RequestID string     `json:"requestId,omitempty"`
}

// CreateGroup stores a new group owned by the caller together with the
// creator's membership row.
func (s *Service) CreateGroup(ctx context.Context, callerID string, in CreateGroupInput) (GroupSummary, error) {
	callerID = normalizeCaller(callerID)
	if callerID == "" {
		return GroupSummary{}, unauthorizedError()
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return GroupSummary{}, validationError("Group name is required")
	}

	var g models.Group
	err := s.tx.Run(ctx, "community create group", func(ctx context.Context) error {
		var err error
		g, err = s.groups.Create(ctx, models.Group{
			Name:           in.Name,
			Topic:          strings.TrimSpace(in.Topic),
			Description:    strings.TrimSpace(in.Description),
			Visibility:     models.ParseVisibility(in.Visibility),
			CreatorID:      callerID,
			GuidelinesHTML: htmlsanitize.Sanitize(in.Guidelines),
		})
		if err != nil {
			return err
		}
		_, err = s.members.Add(ctx, g.ID, callerID, models.RoleCreator)
		return err
	})
	if err != nil {
		return GroupSummary{}, internalError("create group", err)
	}

	s.audit.GroupCreated(ctx, g.ID, callerID, g.Name, string(g.Visibility))
	return GroupSummary{Group: g, MemberCount: 1, IsMember: true, IsCreator: true}, nil
}

// ListGroups returns public groups plus, for an identified caller, every
// group the caller belongs to. Newest first.
func (s *Service) ListGroups(ctx context.Context, callerID string) ([]GroupSummary, error) {
	callerID = normalizeCaller(callerID)

	var mine []primitive.ObjectID
	if callerID != "" {
		var err error
		if mine, err = s.members.GroupIDsForUser(ctx, callerID); err != nil {
			return nil, internalError("list caller groups", err)
		}
	}

	groups, err := s.groups.ListVisible(ctx, mine)
	if err != nil {
		return nil, internalError("list groups", err)
	}

	ids := make([]primitive.ObjectID, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	counts, err := s.members.CountByGroups(ctx, ids)
	if err != nil {
		return nil, internalError("count members", err)
	}

	memberOf := make(map[primitive.ObjectID]bool, len(mine))
	for _, id := range mine {
		memberOf[id] = true
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		creator := isCreator(g, callerID)
		out = append(out, GroupSummary{
			Group:       g,
			MemberCount: counts[g.ID],
			IsMember:    creator || memberOf[g.ID],
			IsCreator:   creator,
		})
	}
	return out, nil
}

// GetGroup returns a group. Roster and recent messages are only included
// for members, regardless of the group's visibility.
func (s *Service) GetGroup(ctx context.Context, groupID, callerID string) (GroupDetail, error) {
	callerID = normalizeCaller(callerID)
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	member, err := s.isMember(ctx, g, callerID)
	if err != nil {
		return GroupDetail{}, err
	}
	counts, err := s.members.CountByGroups(ctx, []primitive.ObjectID{g.ID})
	if err != nil {
		return GroupDetail{}, internalError("count members", err)
	}

	d := GroupDetail{
		GroupSummary: GroupSummary{
			Group:       g,
			MemberCount: counts[g.ID],
			IsMember:    member,
			IsCreator:   isCreator(g, callerID),
		},
		Members:  []models.GroupMembership{},
		Messages: []models.Message{},
	}

	if !member {
		if callerID != "" {
			_, err := s.requests.FindPending(ctx, g.ID, callerID)
			switch {
			case err == nil:
				d.RequestPending = true
			case !errors.Is(err, mongo.ErrNoDocuments):
				return GroupDetail{}, internalError("find pending request", err)
			}
		}
		return d, nil
	}

	if d.Members, err = s.members.ListByGroup(ctx, g.ID); err != nil {
		return GroupDetail{}, internalError("list members", err)
	}
	if d.Messages, _, err = s.messages.ListPage(ctx, g.ID, paging.Latest(RecentMessageCount)); err != nil {
		return GroupDetail{}, internalError("list recent messages", err)
	}
	if d.IsCreator {
		if d.PendingRequests, err = s.requests.ListPendingByGroup(ctx, g.ID); err != nil {
			return GroupDetail{}, internalError("list pending requests", err)
		}
	}
	return d, nil
}

// JoinGroup adds the caller to a public group, or files (or returns the
// existing) pending request for a private one.
func (s *Service) JoinGroup(ctx context.Context, groupID, callerID string) (JoinResult, error) {
	callerID = normalizeCaller(callerID)
	if callerID == "" {
		return JoinResult{}, unauthorizedError()
	}
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return JoinResult{}, err
	}

	member, err := s.isMember(ctx, g, callerID)
	if err != nil {
		return JoinResult{}, err
	}
	alreadyMember := JoinResult{Status: JoinAlreadyMember, Message: "Already a member"}
	if member {
		return alreadyMember, nil
	}

	if !g.IsPrivate() {
		_, err := s.members.Add(ctx, g.ID, callerID, models.RoleMember)
		if errors.Is(err, membershipstore.ErrDuplicateMembership) {
			return alreadyMember, nil
		}
		if err != nil {
			return JoinResult{}, internalError("join group", err)
		}
		s.audit.MemberJoined(ctx, g.ID, callerID)
		return JoinResult{Status: JoinJoined, Message: "Joined group"}, nil
	}

	jr, err := s.pendingRequestFor(ctx, g.ID, callerID)
	if err != nil {
		return JoinResult{}, err
	}
	return JoinResult{
		Status:    JoinPending,
		Message:   "Join request sent",
		RequestID: jr.ID.Hex(),
	}, nil
}

// pendingRequestFor returns the caller's pending request for a private
// group, creating it when none exists.
func (s *Service) pendingRequestFor(ctx context.Context, groupID primitive.ObjectID, callerID string) (models.JoinRequest, error) {
	jr, err := s.requests.FindPending(ctx, groupID, callerID)
	if err == nil {
		return jr, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.JoinRequest{}, internalError("find pending request", err)
	}

	jr, err = s.requests.Create(ctx, groupID, callerID)
	if errors.Is(err, joinrequeststore.ErrPendingRequestExists) {
		// lost a race with a concurrent join
		if jr, err = s.requests.FindPending(ctx, groupID, callerID); err != nil {
			return models.JoinRequest{}, internalError("find pending request", err)
		}
		return jr, nil
	}
	if err != nil {
		return models.JoinRequest{}, internalError("create join request", err)
	}
	s.audit.JoinRequested(ctx, groupID, jr.ID, callerID)
	return jr, nil
}

// LeaveGroup removes the caller's membership. The creator cannot leave.
func (s *Service) LeaveGroup(ctx context.Context, groupID, callerID string) error {
	callerID = normalizeCaller(callerID)
	if callerID == "" {
		return unauthorizedError()
	}
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if isCreator(g, callerID) {
		return forbiddenError("The group creator cannot leave the group")
	}

	n, err := s.members.Remove(ctx, g.ID, callerID)
	if err != nil {
		return internalError("leave group", err)
	}
	if n > 0 {
		s.audit.MemberLeft(ctx, g.ID, callerID)
	}
	return nil
}

// ApproveRequest admits the requesting user to a private group. Only the
// creator may approve. Approving an already approved request succeeds and
// re-ensures the membership row.
func (s *Service) ApproveRequest(ctx context.Context, groupID, requestID, callerID string) (models.JoinRequest, error) {
	callerID = normalizeCaller(callerID)
	if callerID == "" {
		return models.JoinRequest{}, unauthorizedError()
	}
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	rid, err := parseID(requestID, "Request id")
	if err != nil {
		return models.JoinRequest{}, err
	}
	if !isCreator(g, callerID) {
		return models.JoinRequest{}, forbiddenError("Only the group creator can approve join requests")
	}

	jr, err := s.requests.GetByID(ctx, rid)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && jr.GroupID != g.ID) {
		return models.JoinRequest{}, notFoundError("Join request not found")
	}
	if err != nil {
		return models.JoinRequest{}, internalError("load join request", err)
	}

	err = s.tx.Run(ctx, "community approve request", func(ctx context.Context) error {
		if _, err := s.members.Ensure(ctx, g.ID, jr.UserID, models.RoleMember); err != nil {
			return err
		}
		if jr.Status == models.StatusApproved {
			return nil
		}
		_, err := s.requests.MarkApproved(ctx, jr.ID, callerID)
		return err
	})
	if err != nil {
		return models.JoinRequest{}, internalError("approve join request", err)
	}

	wasPending := jr.Status == models.StatusPending
	if jr, err = s.requests.GetByID(ctx, rid); err != nil {
		return models.JoinRequest{}, internalError("reload join request", err)
	}
	if wasPending {
		s.audit.RequestApproved(ctx, g.ID, jr.ID, callerID, jr.UserID)
	}
	return jr, nil
}

// DeleteGroup removes a group and every membership, message and request
// that references it. Only the creator may delete.
func (s *Service) DeleteGroup(ctx context.Context, groupID, callerID string) error {
	callerID = normalizeCaller(callerID)
	if callerID == "" {
		return unauthorizedError()
	}
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !isCreator(g, callerID) {
		return forbiddenError("Only the group creator can delete the group")
	}

	var removed struct{ members, messages, requests int64 }
	err = s.tx.Run(ctx, "community delete group", func(ctx context.Context) error {
		var err error
		if removed.members, err = s.members.DeleteByGroup(ctx, g.ID); err != nil {
			return err
		}
		if removed.messages, err = s.messages.DeleteByGroup(ctx, g.ID); err != nil {
			return err
		}
		if removed.requests, err = s.requests.DeleteByGroup(ctx, g.ID); err != nil {
			return err
		}
		_, err = s.groups.Delete(ctx, g.ID)
		return err
	})
	if err != nil {
		return internalError("delete group", err)
	}

	s.log.Info("community group deleted",
		zap.String("group_id", g.ID.Hex()),
		zap.Int64("memberships", removed.members),
		zap.Int64("messages", removed.messages),
		zap.Int64("join_requests", removed.requests))
	s.audit.GroupDeleted(ctx, g.ID, callerID, g.Name)
	return nil
}
