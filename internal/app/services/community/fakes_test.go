package community_test

import (
	"context"
	"sort"
	"sync"
	"time"

	joinrequeststore "github.com/dalemusser/carecommunity/internal/app/store/joinrequests"
	membershipstore "github.com/dalemusser/carecommunity/internal/app/store/memberships"
	"github.com/dalemusser/carecommunity/internal/app/system/paging"
	"github.com/dalemusser/carecommunity/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memDB is an in-memory stand-in for the four community collections.
type memDB struct {
	mu          sync.Mutex
	clock       time.Time
	groups      map[primitive.ObjectID]models.Group
	memberships []models.GroupMembership
	requests    []models.JoinRequest
	messages    []models.Message

	// test hooks
	hideMemberships bool  // Exists always reports false
	findMisses      int   // FindPending reports no rows this many times
	lastLimit       int64 // limit seen by ListPage
	dupWrites       int   // Add calls rejected as duplicates
}

func newMemDB() *memDB {
	return &memDB{
		clock:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		groups: make(map[primitive.ObjectID]models.Group),
	}
}

func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) countFor(groupID primitive.ObjectID) (members, requests, messages int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, m := range db.memberships {
		if m.GroupID == groupID {
			members++
		}
	}
	for _, r := range db.requests {
		if r.GroupID == groupID {
			requests++
		}
	}
	for _, m := range db.messages {
		if m.GroupID == groupID {
			messages++
		}
	}
	return
}

type fakeGroups struct{ db *memDB }

func (f fakeGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	g, ok := f.db.groups[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return g, nil
}

func (f fakeGroups) Create(_ context.Context, g models.Group) (models.Group, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	g.ID = primitive.NewObjectID()
	g.CreatedAt = f.db.tick()
	g.UpdatedAt = g.CreatedAt
	f.db.groups[g.ID] = g
	return g, nil
}

func (f fakeGroups) ListVisible(_ context.Context, alsoInclude []primitive.ObjectID) ([]models.Group, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	include := make(map[primitive.ObjectID]bool)
	for _, id := range alsoInclude {
		include[id] = true
	}
	out := []models.Group{}
	for _, g := range f.db.groups {
		if g.Visibility == models.VisibilityPublic || include[g.ID] {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeGroups) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.groups[id]; !ok {
		return 0, nil
	}
	delete(f.db.groups, id)
	return 1, nil
}

type fakeMembers struct{ db *memDB }

func (f fakeMembers) Add(_ context.Context, groupID primitive.ObjectID, userID string, role models.MemberRole) (models.GroupMembership, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			f.db.dupWrites++
			return models.GroupMembership{}, membershipstore.ErrDuplicateMembership
		}
	}
	m := models.GroupMembership{
		ID: primitive.NewObjectID(), GroupID: groupID, UserID: userID, Role: role, JoinedAt: f.db.tick(),
	}
	f.db.memberships = append(f.db.memberships, m)
	return m, nil
}

func (f fakeMembers) Ensure(_ context.Context, groupID primitive.ObjectID, userID string, role models.MemberRole) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, m := range f.db.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return false, nil
		}
	}
	f.db.memberships = append(f.db.memberships, models.GroupMembership{
		ID: primitive.NewObjectID(), GroupID: groupID, UserID: userID, Role: role, JoinedAt: f.db.tick(),
	})
	return true, nil
}

func (f fakeMembers) Remove(_ context.Context, groupID primitive.ObjectID, userID string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, m := range f.db.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			f.db.memberships = append(f.db.memberships[:i], f.db.memberships[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f fakeMembers) Exists(_ context.Context, groupID primitive.ObjectID, userID string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.hideMemberships {
		return false, nil
	}
	for _, m := range f.db.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeMembers) ListByGroup(_ context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []models.GroupMembership{}
	for _, m := range f.db.memberships {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeMembers) GroupIDsForUser(_ context.Context, userID string) ([]primitive.ObjectID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var ids []primitive.ObjectID
	for _, m := range f.db.memberships {
		if m.UserID == userID {
			ids = append(ids, m.GroupID)
		}
	}
	return ids, nil
}

func (f fakeMembers) CountByGroups(_ context.Context, groupIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	want := make(map[primitive.ObjectID]bool)
	for _, id := range groupIDs {
		want[id] = true
	}
	counts := make(map[primitive.ObjectID]int)
	for _, m := range f.db.memberships {
		if want[m.GroupID] {
			counts[m.GroupID]++
		}
	}
	return counts, nil
}

func (f fakeMembers) DeleteByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var kept []models.GroupMembership
	var n int64
	for _, m := range f.db.memberships {
		if m.GroupID == groupID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.db.memberships = kept
	return n, nil
}

type fakeRequests struct{ db *memDB }

func (f fakeRequests) Create(_ context.Context, groupID primitive.ObjectID, userID string) (models.JoinRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.requests {
		if r.GroupID == groupID && r.UserID == userID && r.Status == models.StatusPending {
			return models.JoinRequest{}, joinrequeststore.ErrPendingRequestExists
		}
	}
	r := models.JoinRequest{
		ID: primitive.NewObjectID(), GroupID: groupID, UserID: userID,
		Status: models.StatusPending, CreatedAt: f.db.tick(),
	}
	f.db.requests = append(f.db.requests, r)
	return r, nil
}

func (f fakeRequests) GetByID(_ context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return models.JoinRequest{}, mongo.ErrNoDocuments
}

func (f fakeRequests) FindPending(_ context.Context, groupID primitive.ObjectID, userID string) (models.JoinRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.findMisses > 0 {
		f.db.findMisses--
		return models.JoinRequest{}, mongo.ErrNoDocuments
	}
	for _, r := range f.db.requests {
		if r.GroupID == groupID && r.UserID == userID && r.Status == models.StatusPending {
			return r, nil
		}
	}
	return models.JoinRequest{}, mongo.ErrNoDocuments
}

func (f fakeRequests) ListPendingByGroup(_ context.Context, groupID primitive.ObjectID) ([]models.JoinRequest, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []models.JoinRequest{}
	for _, r := range f.db.requests {
		if r.GroupID == groupID && r.Status == models.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeRequests) MarkApproved(_ context.Context, id primitive.ObjectID, approverID string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, r := range f.db.requests {
		if r.ID == id && r.Status == models.StatusPending {
			now := f.db.tick()
			f.db.requests[i].Status = models.StatusApproved
			f.db.requests[i].ApprovedAt = &now
			f.db.requests[i].ApprovedBy = approverID
			return 1, nil
		}
	}
	return 0, nil
}

func (f fakeRequests) DeleteByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var kept []models.JoinRequest
	var n int64
	for _, r := range f.db.requests {
		if r.GroupID == groupID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.db.requests = kept
	return n, nil
}

type fakeMessages struct{ db *memDB }

func (f fakeMessages) Create(_ context.Context, m models.Message) (models.Message, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = f.db.tick()
	f.db.messages = append(f.db.messages, m)
	return m, nil
}

func (f fakeMessages) ListPage(_ context.Context, groupID primitive.ObjectID, cfg paging.KeysetConfig) ([]models.Message, paging.Result, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.lastLimit = int64(cfg.Limit)

	// messages are appended in (CreatedAt, _id) order
	var rows []models.Message
	for _, m := range f.db.messages {
		if m.GroupID != groupID {
			continue
		}
		if c := cfg.Cursor; c != nil {
			older := m.CreatedAt.Before(c.At) || (m.CreatedAt.Equal(c.At) && m.ID.Hex() < c.ID.Hex())
			newer := m.CreatedAt.After(c.At) || (m.CreatedAt.Equal(c.At) && m.ID.Hex() > c.ID.Hex())
			if (cfg.Direction == paging.Backward && !older) || (cfg.Direction == paging.Forward && !newer) {
				continue
			}
		}
		rows = append(rows, m)
	}
	if cfg.Direction == paging.Backward {
		paging.Reverse(rows)
	}
	if n := int(cfg.LimitPlusOne()); len(rows) > n {
		rows = rows[:n]
	}
	out := make([]models.Message, len(rows))
	copy(out, rows)
	return out, paging.TrimPage(&out, cfg), nil
}

func (f fakeMessages) DeleteByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var kept []models.Message
	var n int64
	for _, m := range f.db.messages {
		if m.GroupID == groupID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.db.messages = kept
	return n, nil
}

// recordingTx runs work inline and remembers the operation names.
type recordingTx struct {
	mu  sync.Mutex
	ops []string
}

func (tx *recordingTx) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	tx.ops = append(tx.ops, op)
	tx.mu.Unlock()
	return fn(ctx)
}
