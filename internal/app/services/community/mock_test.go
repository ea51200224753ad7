package community_test

import (
	"context"

	"github.com/dalemusser/carecommunity/internal/domain/models"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const mockAnything = mock.Anything

type mockGroupStore struct{ mock.Mock }

func (m *mockGroupStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *mockGroupStore) Create(ctx context.Context, g models.Group) (models.Group, error) {
	args := m.Called(ctx, g)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *mockGroupStore) ListVisible(ctx context.Context, alsoInclude []primitive.ObjectID) ([]models.Group, error) {
	args := m.Called(ctx, alsoInclude)
	return args.Get(0).([]models.Group), args.Error(1)
}

func (m *mockGroupStore) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}
