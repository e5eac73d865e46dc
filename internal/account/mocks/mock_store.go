package mocks

import (
	"context"

	"filevault/internal/account"
	"filevault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateEmailToken(ctx context.Context, email, accountID string) (*account.Token, error) {
	args := m.Called(ctx, email, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Token), args.Error(1)
}

func (m *MockStore) CreateSession(ctx context.Context, accountID, code string) (*model.Session, error) {
	args := m.Called(ctx, accountID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockStore) GetSession(ctx context.Context, secret string) (*model.Session, error) {
	args := m.Called(ctx, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockStore) DeleteSession(ctx context.Context, secret string) error {
	args := m.Called(ctx, secret)
	return args.Error(0)
}
