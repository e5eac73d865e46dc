package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOTP(ctx context.Context, to, code string, validFor time.Duration) error {
	args := m.Called(ctx, to, code, validFor)
	return args.Error(0)
}
