package mocks

import (
	"context"

	"filevault/internal/model"
	"filevault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) LookupUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockIdentityService) RequestOTP(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityService) CreateAccount(ctx context.Context, p service.CreateAccountParams) (*service.AccountResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccountResult), args.Error(1)
}

func (m *MockIdentityService) VerifyOTP(ctx context.Context, p service.VerifyOTPParams) (*model.Session, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockIdentityService) CurrentUser(ctx context.Context, ref service.SessionRef) (*model.User, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockIdentityService) SignOut(ctx context.Context, ref service.SessionRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockIdentityService) SignIn(ctx context.Context, p service.SignInParams) (*service.AccountResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccountResult), args.Error(1)
}
