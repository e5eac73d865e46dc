// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
package repository

import (
	"context"
	"errors"

	"filevault/internal/model"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines data access for user profile documents.
type UserRepository interface {
	// Create inserts a new user. Returns ErrDuplicate if the email or account id is taken.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// FindByEmail returns the user with exactly this email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByAccountID returns the user bound to the account, or ErrNotFound.
	FindByAccountID(ctx context.Context, accountID string) (*model.User, error)
}

// FileRepository defines data access for file metadata documents.
// No business logic here, strictly persistence operations.
type FileRepository interface {
	Create(ctx context.Context, f *model.File) (*model.File, error)

	// FindByID returns a file by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.File, error)

	// List returns the files visible to the querying user and the total match count.
	List(ctx context.Context, q FileQuery) (*PageResult[model.File], error)

	// ListByOwner returns every file owned by ownerID, shared ones excluded.
	ListByOwner(ctx context.Context, ownerID string) ([]model.File, error)

	// UpdateName sets the file name and returns the updated record, or ErrNotFound.
	UpdateName(ctx context.Context, id, name string) (*model.File, error)

	// UpdateSharedEmails replaces the shared user list and returns the updated record, or ErrNotFound.
	UpdateSharedEmails(ctx context.Context, id string, emails []string) (*model.File, error)

	// Delete removes a file document by ID. Returns ErrNotFound if it did not exist.
	Delete(ctx context.Context, id string) error
}

// SortField is a whitelisted file column usable for ordering.
type SortField string

const (
	SortCreatedAt SortField = "$createdAt"
	SortUpdatedAt SortField = "$updatedAt"
	SortName      SortField = "name"
	SortSize      SortField = "size"
)

// Sort describes the ordering of a file listing.
type Sort struct {
	Field SortField
	Desc  bool
}

// FileQuery selects files visible to a user: owned by OwnerID or shared with Email.
// Empty Types and SearchText apply no filter. Limit <= 0 means no limit.
type FileQuery struct {
	OwnerID    string
	Email      string
	Types      []model.FileType
	SearchText string
	Sort       Sort
	PageQuery
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
