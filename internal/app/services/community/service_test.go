package community_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type harness struct {
	svc *community.Service
	db  *memDB
	tx  *recordingTx
	ctx context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	tx := &recordingTx{}
	svc := community.New(community.Deps{
		Groups:       fakeGroups{db},
		Memberships:  fakeMembers{db},
		JoinRequests: fakeRequests{db},
		Messages:     fakeMessages{db},
		Tx:           tx,
	})
	return &harness{svc: svc, db: db, tx: tx, ctx: context.Background()}
}

func (h *harness) createGroup(t *testing.T, caller, name, visibility string) community.GroupSummary {
	t.Helper()
	g, err := h.svc.CreateGroup(h.ctx, caller, community.CreateGroupInput{Name: name, Visibility: visibility})
	require.NoError(t, err)
	return g
}

func (h *harness) isMember(t *testing.T, groupID, caller string) bool {
	t.Helper()
	d, err := h.svc.GetGroup(h.ctx, groupID, caller)
	require.NoError(t, err)
	return d.IsMember
}

func TestCreateGroup_RequiresCaller(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateGroup(h.ctx, "  ", community.CreateGroupInput{Name: "Diabetes Support"})
	assert.ErrorIs(t, err, community.ErrUnauthorized)
}

func TestCreateGroup_RequiresName(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := h.svc.CreateGroup(h.ctx, "U1", community.CreateGroupInput{Name: name})
		assert.ErrorIs(t, err, community.ErrValidation, "name %q", name)
	}
	assert.Empty(t, h.db.groups)
}

func TestCreateGroup_VisibilityCoercion(t *testing.T) {
	h := newHarness(t)
	cases := map[string]models.Visibility{
		"private": models.VisibilityPrivate,
		"public":  models.VisibilityPublic,
		"PRIVATE": models.VisibilityPublic,
		"secret":  models.VisibilityPublic,
		"":        models.VisibilityPublic,
	}
	for in, want := range cases {
		g := h.createGroup(t, "U1", "Group "+in, in)
		assert.Equal(t, want, g.Visibility, "visibility %q", in)
	}
}

func TestCreateGroup_KeepsTextAsSent(t *testing.T) {
	h := newHarness(t)
	g, err := h.svc.CreateGroup(h.ctx, "U1", community.CreateGroupInput{
		Name:        "  Heart <care> group ",
		Topic:       " A&B <cardio> ",
		Description: "Tom & Jerry &amp; co",
		Guidelines:  "<p>Be kind</p><script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Heart <care> group", g.Name)
	assert.Equal(t, "A&B <cardio>", g.Topic)
	assert.Equal(t, "Tom & Jerry &amp; co", g.Description)
	assert.Equal(t, "<p>Be kind</p>", g.GuidelinesHTML, "guidelines are rich text and get sanitized")
	assert.Equal(t, []string{"community create group"}, h.tx.ops)

	d, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "Heart <care> group", d.Name)
}

// Scenario A
func TestScenario_CreatePublicGroup(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	assert.Equal(t, 1, g.MemberCount)
	assert.True(t, g.IsMember)
	assert.True(t, g.IsCreator)
	assert.Equal(t, "U1", g.CreatorID)

	assert.True(t, h.isMember(t, g.ID.Hex(), "U1"))
	assert.False(t, h.isMember(t, g.ID.Hex(), "U2"))

	members, _, _ := h.db.countFor(g.ID)
	assert.Equal(t, 1, members)
	assert.Equal(t, models.RoleCreator, h.db.memberships[0].Role)
}

// Scenario B
func TestScenario_JoinPublicGroup(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.Equal(t, community.JoinJoined, res.Status)
	assert.Empty(t, res.RequestID)

	d, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.True(t, d.IsMember)
	assert.Equal(t, 2, d.MemberCount)
	assert.Len(t, d.Members, 2)

	_, requests, _ := h.db.countFor(g.ID)
	assert.Zero(t, requests, "public join must not create a request")
}

func TestJoinGroup_AlreadyMember(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U1")
	require.NoError(t, err)
	assert.Equal(t, community.JoinAlreadyMember, res.Status)
	assert.Equal(t, "Already a member", res.Message)

	_, err = h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	res, err = h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.Equal(t, community.JoinAlreadyMember, res.Status)

	members, _, _ := h.db.countFor(g.ID)
	assert.Equal(t, 2, members)
}

func TestJoinGroup_DuplicateInsertIsAlreadyMember(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")
	_, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)

	// a concurrent join that passed the membership check before the insert
	h.db.hideMemberships = true
	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.Equal(t, community.JoinAlreadyMember, res.Status)
}

func TestJoinGroup_Errors(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	_, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "")
	assert.ErrorIs(t, err, community.ErrUnauthorized)

	_, err = h.svc.JoinGroup(h.ctx, "", "U2")
	assert.ErrorIs(t, err, community.ErrValidation)

	_, err = h.svc.JoinGroup(h.ctx, "not-an-id", "U2")
	assert.ErrorIs(t, err, community.ErrValidation)

	_, err = h.svc.JoinGroup(h.ctx, primitive.NewObjectID().Hex(), "U2")
	assert.ErrorIs(t, err, community.ErrNotFound)
}

func TestJoinGroup_PrivateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")

	first, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.Equal(t, community.JoinPending, first.Status)
	require.NotEmpty(t, first.RequestID)

	second, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.Equal(t, first.RequestID, second.RequestID)

	_, requests, _ := h.db.countFor(g.ID)
	assert.Equal(t, 1, requests)
	assert.False(t, h.isMember(t, g.ID.Hex(), "U2"))
}

func TestJoinGroup_PrivateRaceReturnsExistingRequest(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")
	first, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)

	// the next lookup misses, so the insert hits the pending-request constraint
	h.db.findMisses = 1
	second, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.Equal(t, first.RequestID, second.RequestID)
}

// Scenario C
func TestScenario_ApprovePrivateRequest(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")

	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	require.Equal(t, community.JoinPending, res.Status)

	d, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.True(t, d.RequestPending)

	creatorView, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), "U1")
	require.NoError(t, err)
	require.Len(t, creatorView.PendingRequests, 1)
	assert.Equal(t, res.RequestID, creatorView.PendingRequests[0].ID.Hex())

	jr, err := h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, jr.Status)
	assert.Equal(t, "U1", jr.ApprovedBy)
	assert.NotNil(t, jr.ApprovedAt)

	d, err = h.svc.GetGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	assert.True(t, d.IsMember)
	assert.False(t, d.RequestPending)

	// approved request is kept as history
	_, requests, _ := h.db.countFor(g.ID)
	assert.Equal(t, 1, requests)
	assert.Contains(t, h.tx.ops, "community approve request")
}

func TestApproveRequest_Idempotent(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")
	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U1")
	require.NoError(t, err)
	jr, err := h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, jr.Status)

	members, _, _ := h.db.countFor(g.ID)
	assert.Equal(t, 2, members)
	assert.Zero(t, h.db.dupWrites, "re-approval must not attempt a duplicate membership insert")
}

func TestApproveRequest_RestoresMissingMembership(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")
	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U1")
	require.NoError(t, err)

	// approved request left without its membership row
	_, err = fakeMembers{h.db}.Remove(h.ctx, g.ID, "U2")
	require.NoError(t, err)

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U1")
	require.NoError(t, err)
	assert.True(t, h.isMember(t, g.ID.Hex(), "U2"))
}

func TestApproveRequest_Errors(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")
	other := h.createGroup(t, "U1", "Other Circle", "private")
	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U2")
	assert.ErrorIs(t, err, community.ErrForbidden, "requester cannot approve")

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), primitive.NewObjectID().Hex(), "U2")
	assert.ErrorIs(t, err, community.ErrForbidden, "non-creator learns nothing about request ids")

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "")
	assert.ErrorIs(t, err, community.ErrUnauthorized)

	_, err = h.svc.ApproveRequest(h.ctx, other.ID.Hex(), res.RequestID, "U1")
	assert.ErrorIs(t, err, community.ErrNotFound, "request belongs to another group")

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), primitive.NewObjectID().Hex(), "U1")
	assert.ErrorIs(t, err, community.ErrNotFound)

	_, err = h.svc.ApproveRequest(h.ctx, primitive.NewObjectID().Hex(), res.RequestID, "U1")
	assert.ErrorIs(t, err, community.ErrNotFound)

	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), "bogus", "U1")
	assert.ErrorIs(t, err, community.ErrValidation)

	assert.False(t, h.isMember(t, g.ID.Hex(), "U2"))
}

// Scenario D
func TestScenario_NonMemberView(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")
	_, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: "welcome"})
	require.NoError(t, err)

	d, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), "U3")
	require.NoError(t, err)
	assert.False(t, d.IsMember)
	assert.NotNil(t, d.Messages)
	assert.Empty(t, d.Messages)
	assert.NotNil(t, d.Members)
	assert.Empty(t, d.Members)
	assert.False(t, d.RequestPending)
	assert.Nil(t, d.PendingRequests)
	assert.Equal(t, 1, d.MemberCount)
}

func TestGetGroup_PublicNonMemberSeesNoMessages(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")
	_, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: "hello"})
	require.NoError(t, err)

	for _, caller := range []string{"", "U2"} {
		d, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), caller)
		require.NoError(t, err)
		assert.False(t, d.IsMember)
		assert.Empty(t, d.Messages)
		assert.Empty(t, d.Members)
	}
}

func TestGetGroup_MemberSeesLatestMessages(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")
	for i := 1; i <= community.RecentMessageCount+10; i++ {
		_, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	d, err := h.svc.GetGroup(h.ctx, g.ID.Hex(), "U1")
	require.NoError(t, err)
	require.Len(t, d.Messages, community.RecentMessageCount)
	assert.Equal(t, "m11", d.Messages[0].Text)
	assert.Equal(t, fmt.Sprintf("m%d", community.RecentMessageCount+10), d.Messages[len(d.Messages)-1].Text)
}

func TestGetGroup_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.GetGroup(h.ctx, primitive.NewObjectID().Hex(), "U1")
	assert.ErrorIs(t, err, community.ErrNotFound)
}

func TestListGroups_Visibility(t *testing.T) {
	h := newHarness(t)
	pub := h.createGroup(t, "U1", "Diabetes Support", "public")
	priv := h.createGroup(t, "U1", "Private Circle", "private")
	newer := h.createGroup(t, "U9", "Newest Public", "public")
	_, err := h.svc.JoinGroup(h.ctx, pub.ID.Hex(), "U2")
	require.NoError(t, err)

	anon, err := h.svc.ListGroups(h.ctx, "")
	require.NoError(t, err)
	require.Len(t, anon, 2)
	assert.Equal(t, newer.ID, anon[0].ID, "newest first")
	assert.Equal(t, pub.ID, anon[1].ID)
	assert.Equal(t, 2, anon[1].MemberCount)
	assert.False(t, anon[1].IsMember)

	creator, err := h.svc.ListGroups(h.ctx, "U1")
	require.NoError(t, err)
	require.Len(t, creator, 3)
	assert.Equal(t, priv.ID, creator[1].ID)
	assert.True(t, creator[1].IsMember)
	assert.True(t, creator[1].IsCreator)
	assert.False(t, creator[0].IsMember)

	other, err := h.svc.ListGroups(h.ctx, "U2")
	require.NoError(t, err)
	require.Len(t, other, 2, "private group hidden from non-members")
	assert.True(t, other[1].IsMember)
}

func TestLeaveGroup(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")
	_, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)

	err = h.svc.LeaveGroup(h.ctx, g.ID.Hex(), "U1")
	assert.ErrorIs(t, err, community.ErrForbidden, "creator cannot leave")
	assert.True(t, h.isMember(t, g.ID.Hex(), "U1"))

	require.NoError(t, h.svc.LeaveGroup(h.ctx, g.ID.Hex(), "U2"))
	assert.False(t, h.isMember(t, g.ID.Hex(), "U2"))

	// leaving again is a no-op
	require.NoError(t, h.svc.LeaveGroup(h.ctx, g.ID.Hex(), "U2"))

	err = h.svc.LeaveGroup(h.ctx, primitive.NewObjectID().Hex(), "U2")
	assert.ErrorIs(t, err, community.ErrNotFound)
}

// Scenario E
func TestScenario_DeleteCascades(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Private Circle", "private")
	keep := h.createGroup(t, "U1", "Diabetes Support", "public")

	res, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)
	_, err = h.svc.ApproveRequest(h.ctx, g.ID.Hex(), res.RequestID, "U1")
	require.NoError(t, err)
	_, err = h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U3")
	require.NoError(t, err)
	_, err = h.svc.SendMessage(h.ctx, g.ID.Hex(), "U2", community.SendMessageInput{Text: "hi"})
	require.NoError(t, err)
	_, err = h.svc.SendMessage(h.ctx, keep.ID.Hex(), "U1", community.SendMessageInput{Text: "stays"})
	require.NoError(t, err)

	err = h.svc.DeleteGroup(h.ctx, g.ID.Hex(), "U2")
	assert.ErrorIs(t, err, community.ErrForbidden)

	require.NoError(t, h.svc.DeleteGroup(h.ctx, g.ID.Hex(), "U1"))

	_, err = h.svc.GetGroup(h.ctx, g.ID.Hex(), "U1")
	assert.ErrorIs(t, err, community.ErrNotFound)

	members, requests, messages := h.db.countFor(g.ID)
	assert.Zero(t, members)
	assert.Zero(t, requests)
	assert.Zero(t, messages)

	members, _, messages = h.db.countFor(keep.ID)
	assert.Equal(t, 1, members)
	assert.Equal(t, 1, messages)
	assert.Contains(t, h.tx.ops, "community delete group")
}

func TestSendAndListMessages_RoundTrip(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")
	_, err := h.svc.JoinGroup(h.ctx, g.ID.Hex(), "U2")
	require.NoError(t, err)

	_, err = h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: "first"})
	require.NoError(t, err)
	sent, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U2", community.SendMessageInput{Text: "  Morning all  ", SenderName: "Nurse Kim"})
	require.NoError(t, err)
	assert.Equal(t, "Morning all", sent.Text)

	page, err := h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{})
	require.NoError(t, err)
	msgs := page.Messages
	require.Len(t, msgs, 2)
	assert.False(t, page.HasOlder)
	assert.False(t, page.HasNewer)
	last := msgs[len(msgs)-1]
	assert.Equal(t, sent.ID, last.ID)
	assert.Equal(t, "Morning all", last.Text)
	assert.Equal(t, "Nurse Kim", last.SenderName)
	assert.Equal(t, "U1", msgs[0].SenderName, "sender name falls back to caller id")
	assert.Equal(t, int64(community.DefaultMessageLimit), h.db.lastLimit)
}

func TestSendMessage_TextStoredVerbatim(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	texts := []string{
		"a<b",
		"Take <metformin> with food",
		"Tom & Jerry &amp; co",
		"<dose>",
		"<script>alert(1)</script>",
	}
	for _, text := range texts {
		sent, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: text, SenderName: "<Nurse> Kim"})
		require.NoError(t, err, "text %q", text)
		assert.Equal(t, text, sent.Text)
		assert.Equal(t, "<Nurse> Kim", sent.SenderName)
	}

	page, err := h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{})
	require.NoError(t, err)
	require.Len(t, page.Messages, len(texts))
	for i, text := range texts {
		assert.Equal(t, text, page.Messages[i].Text)
	}
}

func TestMessages_NonMemberForbidden(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	_, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U3", community.SendMessageInput{Text: "hi"})
	assert.ErrorIs(t, err, community.ErrForbidden)

	_, err = h.svc.ListMessages(h.ctx, g.ID.Hex(), "U3", community.ListMessagesQuery{})
	assert.ErrorIs(t, err, community.ErrForbidden)

	_, err = h.svc.ListMessages(h.ctx, g.ID.Hex(), "", community.ListMessagesQuery{})
	assert.ErrorIs(t, err, community.ErrUnauthorized)
}

func TestSendMessage_Validation(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")

	_, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: "   "})
	assert.ErrorIs(t, err, community.ErrValidation)

	_, err = h.svc.SendMessage(h.ctx, primitive.NewObjectID().Hex(), "U1", community.SendMessageInput{Text: "hi"})
	assert.ErrorIs(t, err, community.ErrNotFound)
}

func TestListMessages_LimitAndPaging(t *testing.T) {
	h := newHarness(t)
	g := h.createGroup(t, "U1", "Diabetes Support", "public")
	for i := 1; i <= 5; i++ {
		_, err := h.svc.SendMessage(h.ctx, g.ID.Hex(), "U1", community.SendMessageInput{Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	page, err := h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m4", page.Messages[0].Text)
	assert.Equal(t, "m5", page.Messages[1].Text)
	assert.True(t, page.HasOlder)
	assert.False(t, page.HasNewer)
	require.NotEmpty(t, page.OlderCursor)

	older, err := h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{Limit: 2, Before: page.OlderCursor})
	require.NoError(t, err)
	require.Len(t, older.Messages, 2)
	assert.Equal(t, "m2", older.Messages[0].Text)
	assert.Equal(t, "m3", older.Messages[1].Text)
	assert.True(t, older.HasOlder)
	assert.True(t, older.HasNewer)

	oldest, err := h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{Limit: 2, Before: older.OlderCursor})
	require.NoError(t, err)
	require.Len(t, oldest.Messages, 1)
	assert.Equal(t, "m1", oldest.Messages[0].Text)
	assert.False(t, oldest.HasOlder)

	newer, err := h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{After: older.NewerCursor})
	require.NoError(t, err)
	require.Len(t, newer.Messages, 2)
	assert.Equal(t, "m4", newer.Messages[0].Text)
	assert.False(t, newer.HasNewer)

	_, err = h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(community.MaxMessageLimit), h.db.lastLimit)

	_, err = h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{Before: "xyz"})
	assert.ErrorIs(t, err, community.ErrValidation)

	_, err = h.svc.ListMessages(h.ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{Before: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, community.ErrValidation)
}

func TestNew_MessageLimitOverride(t *testing.T) {
	db := newMemDB()
	svc := community.New(community.Deps{
		Groups:       fakeGroups{db},
		Memberships:  fakeMembers{db},
		JoinRequests: fakeRequests{db},
		Messages:     fakeMessages{db},
		MessageLimit: 25,
	})
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, "U1", community.CreateGroupInput{Name: "Sleep"})
	require.NoError(t, err)

	_, err = svc.ListMessages(ctx, g.ID.Hex(), "U1", community.ListMessagesQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(25), db.lastLimit)
}

func TestStoreFailureIsInternal(t *testing.T) {
	groups := new(mockGroupStore)
	db := newMemDB()
	svc := community.New(community.Deps{
		Groups:       groups,
		Memberships:  fakeMembers{db},
		JoinRequests: fakeRequests{db},
		Messages:     fakeMessages{db},
	})
	boom := errors.New("socket closed")
	groups.On("ListVisible", mockAnything, mockAnything).Return([]models.Group(nil), boom).Once()

	_, err := svc.ListGroups(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, community.ErrInternal)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Internal server error", community.MessageOf(err))
	groups.AssertExpectations(t)
}
