package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"filevault/internal/model"
	"filevault/internal/repository"
)

const fileColumns = `id, type, name, url, extension, size, owner_id, account_id, shared_user_emails, storage_object_id, created_at, updated_at`

var sortColumns = map[repository.SortField]string{
	repository.SortCreatedAt: "created_at",
	repository.SortUpdatedAt: "updated_at",
	repository.SortName:      "name",
	repository.SortSize:      "size",
}

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// Shared user emails are stored as a JSONB array of strings.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Create inserts a new file row and returns the stored record.
func (r *FilePostgres) Create(ctx context.Context, f *model.File) (*model.File, error) {
	shared, err := encodeEmails(f.SharedUserEmails)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO files (id, type, name, url, extension, size, owner_id, account_id, shared_user_emails, storage_object_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + fileColumns
	row := r.db.QueryRowContext(ctx, q,
		f.ID,
		string(f.Type),
		f.Name,
		f.URL,
		f.Extension,
		f.Size,
		f.OwnerID,
		f.AccountID,
		shared,
		f.StorageObjectID,
		f.CreatedAt,
		f.UpdatedAt,
	)
	out, err := scanFile(row)
	if err != nil {
		return nil, translate("insert file", err)
	}
	return out, nil
}

// FindByID fetches a single file by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id string) (*model.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate("find file", err)
	}
	return f, nil
}

// List returns the files owned by or shared with the querying user, with a total count.
func (r *FilePostgres) List(ctx context.Context, fq repository.FileQuery) (*repository.PageResult[model.File], error) {
	where, args, err := buildFileFilter(fq)
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE `+where, args...).Scan(&total); err != nil {
		return nil, translate("count files", err)
	}

	col, ok := sortColumns[fq.Sort.Field]
	if !ok {
		col = sortColumns[repository.SortCreatedAt]
	}
	dir := "ASC"
	if fq.Sort.Desc {
		dir = "DESC"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM files WHERE %s ORDER BY %s %s, id %s", fileColumns, where, col, dir, dir)
	if fq.Limit > 0 {
		args = append(args, fq.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if fq.Offset > 0 {
		args = append(args, fq.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	items, err := r.query(ctx, b.String(), args...)
	if err != nil {
		return nil, translate("list files", err)
	}
	return &repository.PageResult[model.File]{Items: items, Total: total}, nil
}

// ListByOwner returns every file owned by ownerID, newest first.
func (r *FilePostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY created_at DESC`
	items, err := r.query(ctx, q, ownerID)
	if err != nil {
		return nil, translate("list files by owner", err)
	}
	return items, nil
}

// UpdateName sets a new file name and bumps updated_at.
func (r *FilePostgres) UpdateName(ctx context.Context, id, name string) (*model.File, error) {
	const q = `UPDATE files SET name = $2, updated_at = now() WHERE id = $1 RETURNING ` + fileColumns
	f, err := scanFile(r.db.QueryRowContext(ctx, q, id, name))
	if err != nil {
		return nil, translate("rename file", err)
	}
	return f, nil
}

// UpdateSharedEmails overwrites the shared user list.
func (r *FilePostgres) UpdateSharedEmails(ctx context.Context, id string, emails []string) (*model.File, error) {
	shared, err := encodeEmails(emails)
	if err != nil {
		return nil, err
	}
	const q = `UPDATE files SET shared_user_emails = $2, updated_at = now() WHERE id = $1 RETURNING ` + fileColumns
	f, err := scanFile(r.db.QueryRowContext(ctx, q, id, shared))
	if err != nil {
		return nil, translate("update file access", err)
	}
	return f, nil
}

// Delete removes a file row by ID.
func (r *FilePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM files WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return translate("delete file", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate("delete file", err)
	}
	if n == 0 {
		return fmt.Errorf("delete file: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *FilePostgres) query(ctx context.Context, q string, args ...any) ([]model.File, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// buildFileFilter renders the WHERE clause for a listing. Placeholders start at $1.
func buildFileFilter(fq repository.FileQuery) (string, []any, error) {
	sharedWith, err := encodeEmails([]string{fq.Email})
	if err != nil {
		return "", nil, err
	}
	args := []any{fq.OwnerID, sharedWith}
	conds := []string{"(owner_id = $1 OR shared_user_emails @> $2::jsonb)"}

	if len(fq.Types) > 0 {
		ph := make([]string, 0, len(fq.Types))
		for _, t := range fq.Types {
			args = append(args, string(t))
			ph = append(ph, fmt.Sprintf("$%d", len(args)))
		}
		conds = append(conds, "type IN ("+strings.Join(ph, ", ")+")")
	}

	if fq.SearchText != "" {
		args = append(args, "%"+escapeLike(fq.SearchText)+"%")
		conds = append(conds, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}

	return strings.Join(conds, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func encodeEmails(emails []string) (string, error) {
	if emails == nil {
		emails = []string{}
	}
	b, err := json.Marshal(emails)
	if err != nil {
		return "", fmt.Errorf("encode shared emails: %w", err)
	}
	return string(b), nil
}

func scanFile(row rowScanner) (*model.File, error) {
	var (
		f      model.File
		typ    string
		shared []byte
	)
	if err := row.Scan(
		&f.ID,
		&typ,
		&f.Name,
		&f.URL,
		&f.Extension,
		&f.Size,
		&f.OwnerID,
		&f.AccountID,
		&shared,
		&f.StorageObjectID,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.Type = model.FileType(typ)
	f.SharedUserEmails = []string{}
	if len(shared) > 0 {
		if err := json.Unmarshal(shared, &f.SharedUserEmails); err != nil {
			return nil, fmt.Errorf("decode shared emails: %w", err)
		}
	}
	return &f, nil
}
