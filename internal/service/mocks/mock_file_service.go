package mocks

import (
	"context"
	"io"

	"filevault/internal/model"
	"filevault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, p service.UploadParams) (*model.File, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context, ref service.SessionRef, p service.ListParams) (*service.FileListResult, error) {
	args := m.Called(ctx, ref, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileListResult), args.Error(1)
}

func (m *MockFileService) Rename(ctx context.Context, ref service.SessionRef, p service.RenameParams) (*model.File, error) {
	args := m.Called(ctx, ref, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) UpdateAccess(ctx context.Context, ref service.SessionRef, p service.UpdateAccessParams) (*model.File, error) {
	args := m.Called(ctx, ref, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) Delete(ctx context.Context, ref service.SessionRef, p service.DeleteParams) (*service.DeleteResult, error) {
	args := m.Called(ctx, ref, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteResult), args.Error(1)
}

func (m *MockFileService) TotalSpaceUsed(ctx context.Context, ref service.SessionRef) (*model.QuotaSnapshot, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuotaSnapshot), args.Error(1)
}

func (m *MockFileService) Open(ctx context.Context, ref service.SessionRef, fileID string) (io.ReadCloser, *model.File, error) {
	args := m.Called(ctx, ref, fileID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.File), args.Error(2)
}

func (m *MockFileService) DownloadURL(ctx context.Context, ref service.SessionRef, fileID string) (string, error) {
	args := m.Called(ctx, ref, fileID)
	return args.String(0), args.Error(1)
}
