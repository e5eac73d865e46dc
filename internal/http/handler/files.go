package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"filevault/internal/config"
	"filevault/internal/model"
	"filevault/internal/service"
)

// fileID reads and validates the :id route parameter.
func fileID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// parseTypes accepts both repeated and comma-separated "types" query values.
func parseTypes(c *fiber.Ctx) []model.FileType {
	var out []model.FileType
	for _, raw := range c.Context().QueryArgs().PeekMulti("types") {
		for _, t := range strings.Split(string(raw), ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, model.FileType(t))
			}
		}
	}
	return out
}

// ListFiles lists files the caller owns or that are shared with them.
//
//	@Summary	List files
//	@Tags		files
//	@Produce	json
//	@Param		types		query		string	false	"comma-separated file types"
//	@Param		searchText	query		string	false	"name substring"
//	@Param		sort		query		string	false	"<field>-<asc|desc>"	default($createdAt-desc)
//	@Param		limit		query		int		false	"max results"
//	@Success	200			{object}	service.FileListResult
//	@Failure	401			{object}	errorPayload
//	@Router		/files [get]
func ListFiles(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			}
			limit = n
		}

		res, err := svc.List(c.UserContext(), sessionRef(c, cfg), service.ListParams{
			Types:      parseTypes(c),
			SearchText: c.Query("searchText"),
			Sort:       c.Query("sort"),
			Limit:      limit,
		})
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// UploadFile stores a file for the caller (multipart/form-data, field name: file).
//
//	@Summary	Upload file
//	@Tags		files
//	@Accept		mpfd
//	@Produce	json
//	@Param		file	formData	file	true	"file content"
//	@Param		path	formData	string	false	"page path to revalidate"
//	@Success	201		{object}	model.File
//	@Failure	400		{object}	errorPayload
//	@Failure	401		{object}	errorPayload
//	@Failure	413		{object}	errorPayload
//	@Router		/files [post]
func UploadFile(ids service.IdentityService, svc service.FileService, cfg config.SessionConfig, maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := ids.CurrentUser(c.UserContext(), sessionRef(c, cfg))
		if err != nil {
			return err
		}
		if user == nil {
			return &service.Error{Op: "upload file", Kind: service.ErrUnauthenticated}
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds upload limit")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		file, err := svc.Upload(c.UserContext(), service.UploadParams{
			Reader:      f,
			Size:        fh.Size,
			FileName:    fh.Filename,
			ContentType: ct,
			OwnerID:     user.ID,
			AccountID:   user.AccountID,
			Path:        c.FormValue("path"),
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(file)
	}
}

// TotalSpaceUsed summarises the caller's storage use per file type.
//
//	@Summary	Storage usage
//	@Tags		files
//	@Produce	json
//	@Success	200	{object}	model.QuotaSnapshot
//	@Failure	401	{object}	errorPayload
//	@Router		/files/usage [get]
func TotalSpaceUsed(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := svc.TotalSpaceUsed(c.UserContext(), sessionRef(c, cfg))
		if err != nil {
			return err
		}
		return c.JSON(q)
	}
}

// FileContent streams a file as an attachment.
//
//	@Summary	Download file content
//	@Tags		files
//	@Produce	octet-stream
//	@Param		id	path	string	true	"file id"
//	@Success	200
//	@Failure	404	{object}	errorPayload
//	@Router		/files/{id}/content [get]
func FileContent(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := fileID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, f, err := svc.Open(c.UserContext(), sessionRef(c, cfg), id)
		if err != nil {
			return err
		}
		c.Attachment(f.Name)
		// The body stream is closed by fasthttp once sent.
		return c.SendStream(rc, int(f.Size))
	}
}

// DownloadURL returns a short-lived presigned URL for a file.
//
//	@Summary	Presigned download URL
//	@Tags		files
//	@Produce	json
//	@Param		id	path		string	true	"file id"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	errorPayload
//	@Router		/files/{id}/download [get]
func DownloadURL(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := fileID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.DownloadURL(c.UserContext(), sessionRef(c, cfg), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"url": u})
	}
}

// RenameFile renames a file owned by the caller.
//
//	@Summary	Rename file
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"file id"
//	@Param		body	body		service.RenameParams	true	"new name"
//	@Success	200		{object}	model.File
//	@Failure	400		{object}	errorPayload
//	@Failure	403		{object}	errorPayload
//	@Router		/files/{id}/name [patch]
func RenameFile(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := fileID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var p service.RenameParams
		if err := c.BodyParser(&p); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		p.FileID = id

		f, err := svc.Rename(c.UserContext(), sessionRef(c, cfg), p)
		if err != nil {
			return err
		}
		return c.JSON(f)
	}
}

// UpdateFileAccess replaces the list of users a file is shared with.
//
//	@Summary	Update file sharing
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"file id"
//	@Param		body	body		service.UpdateAccessParams	true	"emails"
//	@Success	200		{object}	model.File
//	@Failure	400		{object}	errorPayload
//	@Failure	403		{object}	errorPayload
//	@Router		/files/{id}/access [put]
func UpdateFileAccess(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := fileID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var p service.UpdateAccessParams
		if err := c.BodyParser(&p); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		p.FileID = id

		f, err := svc.UpdateAccess(c.UserContext(), sessionRef(c, cfg), p)
		if err != nil {
			return err
		}
		return c.JSON(f)
	}
}

// DeleteFile deletes a file owned by the caller. The JSON body is optional.
//
//	@Summary	Delete file
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"file id"
//	@Param		body	body		service.DeleteParams	false	"storage object id and page path"
//	@Success	200		{object}	service.DeleteResult
//	@Failure	403		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/files/{id} [delete]
func DeleteFile(svc service.FileService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := fileID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var p service.DeleteParams
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&p); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}
		p.FileID = id

		res, err := svc.Delete(c.UserContext(), sessionRef(c, cfg), p)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
