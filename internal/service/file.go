package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"filevault/internal/cache"
	"filevault/internal/metrics"
	"filevault/internal/model"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

// DefaultSort is applied when a listing does not name one.
const DefaultSort = "$createdAt-desc"

const downloadURLExpiry = 15 * time.Minute

// UploadParams are the inputs of FileService.Upload. Path names the page to revalidate.
type UploadParams struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
	OwnerID     string
	AccountID   string
	Path        string
}

// ListParams are the inputs of FileService.List.
// Sort has the form "<field>-<asc|desc>"; Limit <= 0 means no limit.
type ListParams struct {
	Types      []model.FileType
	SearchText string
	Sort       string
	Limit      int
}

// RenameParams are the inputs of FileService.Rename.
type RenameParams struct {
	FileID    string `json:"fileId"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Path      string `json:"path"`
}

// UpdateAccessParams are the inputs of FileService.UpdateAccess.
// A nil Emails is rejected; an empty one revokes all sharing.
type UpdateAccessParams struct {
	FileID string   `json:"fileId"`
	Emails []string `json:"emails"`
	Path   string   `json:"path"`
}

// DeleteParams are the inputs of FileService.Delete.
type DeleteParams struct {
	FileID          string `json:"fileId"`
	StorageObjectID string `json:"storageObjectId"`
	Path            string `json:"path"`
}

// FileListResult is the service-level DTO for a file listing.
type FileListResult struct {
	Items []model.File `json:"documents"`
	Total int          `json:"total"`
}

// DeleteResult reports a completed deletion.
type DeleteResult struct {
	Status string `json:"status"`
}

// FileService defines the use cases for handling files.
type FileService interface {
	// Upload stores the content, then writes its metadata document. If the document
	// write fails the stored object is deleted before the error is returned.
	Upload(ctx context.Context, p UploadParams) (*model.File, error)

	// List returns the files the caller owns or that are shared with them.
	List(ctx context.Context, ref SessionRef, p ListParams) (*FileListResult, error)

	// Rename sets the name of a file owned by the caller to "<Name>.<Extension>".
	Rename(ctx context.Context, ref SessionRef, p RenameParams) (*model.File, error)

	// UpdateAccess replaces the shared user list of a file owned by the caller.
	UpdateAccess(ctx context.Context, ref SessionRef, p UpdateAccessParams) (*model.File, error)

	// Delete removes the file document, then best-effort removes its object.
	Delete(ctx context.Context, ref SessionRef, p DeleteParams) (*DeleteResult, error)

	// TotalSpaceUsed summarises storage used by the caller's own files.
	TotalSpaceUsed(ctx context.Context, ref SessionRef) (*model.QuotaSnapshot, error)

	// Open streams the content of a file visible to the caller. The caller closes the reader.
	Open(ctx context.Context, ref SessionRef, fileID string) (io.ReadCloser, *model.File, error)

	// DownloadURL returns a short-lived URL for a file visible to the caller.
	DownloadURL(ctx context.Context, ref SessionRef, fileID string) (string, error)
}

// FileServiceConfig holds the limits applied by FileService.
type FileServiceConfig struct {
	MaxUploadBytes     int64
	TotalCapacityBytes int64
}

type fileService struct {
	store    storage.Storage
	files    repository.FileRepository
	identity IdentityService
	cache    cache.Revalidator
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	cfg      FileServiceConfig
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, files repository.FileRepository, identity IdentityService, rv cache.Revalidator, m *metrics.Metrics, log logrus.FieldLogger, cfg FileServiceConfig) FileService {
	return &fileService{
		store:    store,
		files:    files,
		identity: identity,
		cache:    rv,
		metrics:  m,
		log:      log.WithField("component", "files"),
		cfg:      cfg,
	}
}

func (s *fileService) Upload(ctx context.Context, p UploadParams) (_ *model.File, err error) {
	const op = "upload file"
	ctx, span := tracer.Start(ctx, "FileService.Upload")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(p.FileName)
	switch {
	case p.Reader == nil:
		return nil, invalid(op, "file content is required")
	case name == "":
		return nil, invalid(op, "file name is required")
	case p.Size <= 0:
		return nil, invalid(op, "file is empty")
	case s.cfg.MaxUploadBytes > 0 && p.Size > s.cfg.MaxUploadBytes:
		return nil, invalid(op, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes))
	case p.OwnerID == "" || p.AccountID == "":
		return nil, invalid(op, "owner and account are required")
	}

	fileType, ext := model.ClassifyFile(name)
	key := "files/" + uuid.NewString()
	if ext != "" {
		key += "." + ext
	}

	info, err := s.store.Put(ctx, key, p.Reader, storage.PutObjectOptions{
		Size:        p.Size,
		ContentType: p.ContentType,
		Metadata: map[string]string{
			"original-filename": name,
			"owner-id":          p.OwnerID,
		},
	})
	if err != nil {
		s.metrics.Uploads.WithLabelValues("storage_error").Inc()
		return nil, platform(op, fmt.Errorf("upload to storage: %w", err))
	}
	if info.Key == "" {
		info.Key = key
	}
	size := info.Size
	if size <= 0 {
		size = p.Size
	}

	now := time.Now().UTC()
	stored, err := s.files.Create(ctx, &model.File{
		ID:               uuid.NewString(),
		Type:             fileType,
		Name:             name,
		URL:              s.store.URL(info.Key),
		Extension:        ext,
		Size:             size,
		OwnerID:          p.OwnerID,
		AccountID:        p.AccountID,
		SharedUserEmails: []string{},
		StorageObjectID:  info.Key,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		s.metrics.Uploads.WithLabelValues("db_error").Inc()
		// The request may already be cancelled; the rollback must still run.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), info.Key); delErr != nil {
			s.metrics.UploadRollbacks.WithLabelValues("failed").Inc()
			s.log.WithError(delErr).WithField("object_key", info.Key).Error("upload rollback failed, object orphaned")
			return nil, platform(op, errors.Join(
				fmt.Errorf("db save failed: %w", err),
				fmt.Errorf("rollback delete failed: %w", delErr),
			))
		}
		s.metrics.UploadRollbacks.WithLabelValues("ok").Inc()
		return nil, platform(op, fmt.Errorf("db save failed: %w", err))
	}

	s.metrics.Uploads.WithLabelValues("success").Inc()
	s.revalidate(ctx, p.Path)
	return stored, nil
}

func (s *fileService) List(ctx context.Context, ref SessionRef, p ListParams) (_ *FileListResult, err error) {
	const op = "list files"
	ctx, span := tracer.Start(ctx, "FileService.List")
	defer func() { endSpan(span, err) }()

	sort, err := ParseSort(p.Sort)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrInvalidInput, Err: err}
	}
	for _, t := range p.Types {
		if !t.Valid() {
			return nil, invalid(op, fmt.Sprintf("unknown file type %q", t))
		}
	}
	if p.Limit < 0 {
		return nil, invalid(op, "limit must not be negative")
	}

	user, err := requireUser(ctx, s.identity, op, ref)
	if err != nil {
		return nil, err
	}

	res, err := s.files.List(ctx, repository.FileQuery{
		OwnerID:    user.ID,
		Email:      user.Email,
		Types:      p.Types,
		SearchText: strings.TrimSpace(p.SearchText),
		Sort:       sort,
		PageQuery:  repository.PageQuery{Limit: p.Limit},
	})
	if err != nil {
		return nil, platform(op, err)
	}

	// The query already restricts visibility; rows it let through are dropped and uncounted.
	items := make([]model.File, 0, len(res.Items))
	for _, f := range res.Items {
		if f.VisibleTo(user) {
			items = append(items, f)
		}
	}
	total := res.Total - (len(res.Items) - len(items))
	if total < len(items) {
		total = len(items)
	}
	return &FileListResult{Items: items, Total: total}, nil
}

func (s *fileService) Rename(ctx context.Context, ref SessionRef, p RenameParams) (_ *model.File, err error) {
	const op = "rename file"
	ctx, span := tracer.Start(ctx, "FileService.Rename")
	defer func() { endSpan(span, err) }()

	base := strings.TrimSpace(p.Name)
	ext := strings.TrimPrefix(strings.TrimSpace(p.Extension), ".")
	if p.FileID == "" || base == "" || ext == "" {
		return nil, invalid(op, "file id, name and extension are required")
	}

	if _, err := s.ownedFile(ctx, op, ref, p.FileID); err != nil {
		return nil, err
	}

	f, err := s.files.UpdateName(ctx, p.FileID, base+"."+ext)
	if err != nil {
		return nil, platform(op, err)
	}
	s.revalidate(ctx, p.Path)
	return f, nil
}

func (s *fileService) UpdateAccess(ctx context.Context, ref SessionRef, p UpdateAccessParams) (_ *model.File, err error) {
	const op = "update file access"
	ctx, span := tracer.Start(ctx, "FileService.UpdateAccess")
	defer func() { endSpan(span, err) }()

	if p.FileID == "" {
		return nil, invalid(op, "file id is required")
	}
	if p.Emails == nil {
		return nil, invalid(op, "emails must be a list")
	}
	emails, err := normalizeEmails(op, p.Emails)
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedFile(ctx, op, ref, p.FileID); err != nil {
		return nil, err
	}

	f, err := s.files.UpdateSharedEmails(ctx, p.FileID, emails)
	if err != nil {
		return nil, platform(op, err)
	}
	s.revalidate(ctx, p.Path)
	return f, nil
}

func (s *fileService) Delete(ctx context.Context, ref SessionRef, p DeleteParams) (_ *DeleteResult, err error) {
	const op = "delete file"
	ctx, span := tracer.Start(ctx, "FileService.Delete")
	defer func() { endSpan(span, err) }()

	if p.FileID == "" {
		return nil, invalid(op, "file id is required")
	}

	f, err := s.ownedFile(ctx, op, ref, p.FileID)
	if err != nil {
		return nil, err
	}
	if p.StorageObjectID != "" && p.StorageObjectID != f.StorageObjectID {
		return nil, invalid(op, "storage object does not belong to file")
	}

	if err := s.files.Delete(ctx, f.ID); err != nil {
		return nil, platform(op, err)
	}

	// The document is authoritative; a leftover object is tolerated.
	if err := s.store.Delete(ctx, f.StorageObjectID); err != nil {
		s.metrics.OrphanedObjects.Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"file_id":    f.ID,
			"object_key": f.StorageObjectID,
		}).Warn("file deleted but storage object remains")
	}

	s.revalidate(ctx, p.Path)
	return &DeleteResult{Status: "success"}, nil
}

func (s *fileService) TotalSpaceUsed(ctx context.Context, ref SessionRef) (_ *model.QuotaSnapshot, err error) {
	const op = "total space used"
	ctx, span := tracer.Start(ctx, "FileService.TotalSpaceUsed")
	defer func() { endSpan(span, err) }()

	user, err := requireUser(ctx, s.identity, op, ref)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, platform(op, err)
	}
	return model.NewQuotaSnapshot(files, s.cfg.TotalCapacityBytes), nil
}

func (s *fileService) Open(ctx context.Context, ref SessionRef, fileID string) (io.ReadCloser, *model.File, error) {
	const op = "open file"
	f, err := s.visibleFile(ctx, op, ref, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, f.StorageObjectID)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil, &Error{Op: op, Kind: ErrNotFound, Err: err}
	}
	if err != nil {
		return nil, nil, platform(op, err)
	}
	return rc, f, nil
}

func (s *fileService) DownloadURL(ctx context.Context, ref SessionRef, fileID string) (string, error) {
	const op = "download url"
	f, err := s.visibleFile(ctx, op, ref, fileID)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, f.StorageObjectID, downloadURLExpiry)
	if err != nil {
		return "", platform(op, err)
	}
	return u, nil
}

// ownedFile loads a file and checks the caller owns it.
func (s *fileService) ownedFile(ctx context.Context, op string, ref SessionRef, fileID string) (*model.File, error) {
	user, err := requireUser(ctx, s.identity, op, ref)
	if err != nil {
		return nil, err
	}
	f, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, platform(op, err)
	}
	if f.OwnerID != user.ID {
		return nil, &Error{Op: op, Kind: ErrForbidden}
	}
	return f, nil
}

// visibleFile loads a file the caller owns or has shared with them.
// Files the caller cannot see are reported as not found.
func (s *fileService) visibleFile(ctx context.Context, op string, ref SessionRef, fileID string) (*model.File, error) {
	if fileID == "" {
		return nil, invalid(op, "file id is required")
	}
	user, err := requireUser(ctx, s.identity, op, ref)
	if err != nil {
		return nil, err
	}
	f, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, platform(op, err)
	}
	if !f.VisibleTo(user) {
		return nil, &Error{Op: op, Kind: ErrNotFound}
	}
	return f, nil
}

// revalidate signals the page cache. Failures are logged, the mutation already happened.
func (s *fileService) revalidate(ctx context.Context, path string) {
	if err := s.cache.Revalidate(ctx, path); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("cache revalidation failed")
	}
}

// ParseSort parses "<field>-<asc|desc>". An empty string yields DefaultSort.
func ParseSort(raw string) (repository.Sort, error) {
	if raw == "" {
		raw = DefaultSort
	}
	i := strings.LastIndex(raw, "-")
	if i <= 0 {
		return repository.Sort{}, fmt.Errorf("malformed sort %q", raw)
	}
	field, dir := repository.SortField(raw[:i]), raw[i+1:]
	switch field {
	case repository.SortCreatedAt, repository.SortUpdatedAt, repository.SortName, repository.SortSize:
	default:
		return repository.Sort{}, fmt.Errorf("unknown sort field %q", field)
	}
	switch dir {
	case "asc":
		return repository.Sort{Field: field}, nil
	case "desc":
		return repository.Sort{Field: field, Desc: true}, nil
	}
	return repository.Sort{}, fmt.Errorf("unknown sort direction %q", dir)
}

func normalizeEmails(op string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = normalizeEmail(e)
		if e == "" {
			continue
		}
		if err := validateEmail(op, e); err != nil {
			return nil, err
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
