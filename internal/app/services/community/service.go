// Package community implements group membership, join approval and
// messaging for care communities. Every operation receives the caller id
// resolved at the HTTP boundary; an empty id means an anonymous caller.
package community

import (
	"context"
	"errors"
	"strings"

	groupstore "github.com/dalemusser/carecommunity/internal/app/store/groups"
	joinrequeststore "github.com/dalemusser/carecommunity/internal/app/store/joinrequests"
	membershipstore "github.com/dalemusser/carecommunity/internal/app/store/memberships"
	messagestore "github.com/dalemusser/carecommunity/internal/app/store/messages"
	"github.com/dalemusser/carecommunity/internal/app/system/auditlog"
	"github.com/dalemusser/carecommunity/internal/app/system/paging"
	"github.com/dalemusser/carecommunity/internal/app/system/txn"
	"github.com/dalemusser/carecommunity/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// DefaultMessageLimit is used by ListMessages when no limit is given.
	DefaultMessageLimit = 100
	// MaxMessageLimit caps the limit accepted by ListMessages.
	MaxMessageLimit = 200
	// RecentMessageCount is how many messages GetGroup returns to members.
	RecentMessageCount = 50
)

type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	Create(ctx context.Context, g models.Group) (models.Group, error)
	ListVisible(ctx context.Context, alsoInclude []primitive.ObjectID) ([]models.Group, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type MembershipStore interface {
	Add(ctx context.Context, groupID primitive.ObjectID, userID string, role models.MemberRole) (models.GroupMembership, error)
	Ensure(ctx context.Context, groupID primitive.ObjectID, userID string, role models.MemberRole) (bool, error)
	Remove(ctx context.Context, groupID primitive.ObjectID, userID string) (int64, error)
	Exists(ctx context.Context, groupID primitive.ObjectID, userID string) (bool, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error)
	GroupIDsForUser(ctx context.Context, userID string) ([]primitive.ObjectID, error)
	CountByGroups(ctx context.Context, groupIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error)
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

type JoinRequestStore interface {
	Create(ctx context.Context, groupID primitive.ObjectID, userID string) (models.JoinRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error)
	FindPending(ctx context.Context, groupID primitive.ObjectID, userID string) (models.JoinRequest, error)
	ListPendingByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.JoinRequest, error)
	MarkApproved(ctx context.Context, id primitive.ObjectID, approverID string) (int64, error)
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

type MessageStore interface {
	Create(ctx context.Context, m models.Message) (models.Message, error)
	ListPage(ctx context.Context, groupID primitive.ObjectID, cfg paging.KeysetConfig) ([]models.Message, paging.Result, error)
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// Transactor runs fn as one unit of work. *txn.Runner satisfies it.
type Transactor interface {
	Run(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

// Deps are the collaborators of a Service. Tx, Audit and Log are optional.
type Deps struct {
	Groups       GroupStore
	Memberships  MembershipStore
	JoinRequests JoinRequestStore
	Messages     MessageStore
	Tx           Transactor
	Audit        *auditlog.Logger
	Log          *zap.Logger

	// MessageLimit overrides DefaultMessageLimit when positive.
	MessageLimit int
}

type Service struct {
	groups   GroupStore
	members  MembershipStore
	requests JoinRequestStore
	messages MessageStore
	tx       Transactor
	audit    *auditlog.Logger
	log      *zap.Logger

	messageLimit int
}

func New(d Deps) *Service {
	s := &Service{
		groups:       d.Groups,
		members:      d.Memberships,
		requests:     d.JoinRequests,
		messages:     d.Messages,
		tx:           d.Tx,
		audit:        d.Audit,
		log:          d.Log,
		messageLimit: DefaultMessageLimit,
	}
	if s.tx == nil {
		s.tx = sequential{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if d.MessageLimit > 0 {
		s.messageLimit = min(d.MessageLimit, MaxMessageLimit)
	}
	return s
}

// NewForDB wires a Service to the Mongo-backed stores of db. Multi-store
// mutations run in a transaction when the deployment supports one.
func NewForDB(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger, messageLimit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return New(Deps{
		Groups:       groupstore.New(db),
		Memberships:  membershipstore.New(db),
		JoinRequests: joinrequeststore.New(db),
		Messages:     messagestore.New(db),
		Tx:           txn.New(db, logger),
		Audit:        audit,
		Log:          logger,
		MessageLimit: messageLimit,
	})
}

// sequential runs the unit of work without a transaction.
type sequential struct{}

func (sequential) Run(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func normalizeCaller(callerID string) string {
	return strings.TrimSpace(callerID)
}

func parseID(raw, what string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, validationError(what + " is required")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, validationError("Invalid " + strings.ToLower(what))
	}
	return id, nil
}

// loadGroup resolves a group id string to the stored group.
func (s *Service) loadGroup(ctx context.Context, groupID string) (models.Group, error) {
	id, err := parseID(groupID, "Group id")
	if err != nil {
		return models.Group{}, err
	}
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, notFoundError("Group not found")
	}
	if err != nil {
		return models.Group{}, internalError("load group", err)
	}
	return g, nil
}

// isCreator reports whether callerID owns g.
func isCreator(g models.Group, callerID string) bool {
	return callerID != "" && g.CreatorID == callerID
}

// isMember reports whether callerID may read and post in g: the creator,
// or anyone holding a membership row.
func (s *Service) isMember(ctx context.Context, g models.Group, callerID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	if isCreator(g, callerID) {
		return true, nil
	}
	ok, err := s.members.Exists(ctx, g.ID, callerID)
	if err != nil {
		return false, internalError("check membership", err)
	}
	return ok, nil
}
