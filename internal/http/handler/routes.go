package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"filevault/internal/cache"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/service"
)

// Deps are the collaborators the HTTP routes are built from.
type Deps struct {
	DB          *sql.DB
	Redis       *redis.Client
	Identity    service.IdentityService
	Files       service.FileService
	Revalidator cache.Revalidator
	Session     config.SessionConfig
	Log         logrus.FieldLogger
	// MaxUploadBytes bounds the multipart file part; zero disables the check.
	MaxUploadBytes int64
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: they decode input, resolve the session cookie and delegate to services.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Redis))
	app.Get("/healthz", LivenessProbe())

	auth := app.Group("/auth")
	auth.Post("/sign-up", SignUp(d.Identity))
	auth.Post("/sign-in", SignIn(d.Identity))
	auth.Post("/verify", VerifyOTP(d.Identity, d.Session))
	auth.Get("/me", CurrentUser(d.Identity, d.Session))
	auth.Post("/sign-out", SignOut(d.Identity, d.Session, d.Log))

	files := app.Group("/files")
	files.Get("/", ListFiles(d.Files, d.Session))
	files.Post("/", UploadFile(d.Identity, d.Files, d.Session, d.MaxUploadBytes))
	files.Get("/usage", TotalSpaceUsed(d.Files, d.Session))
	files.Get("/:id/content", FileContent(d.Files, d.Session))
	files.Get("/:id/download", DownloadURL(d.Files, d.Session))
	files.Patch("/:id/name", RenameFile(d.Files, d.Session))
	files.Put("/:id/access", UpdateFileAccess(d.Files, d.Session))
	files.Delete("/:id", DeleteFile(d.Files, d.Session))

	app.Get("/revalidate", RevalidateVersion(d.Revalidator))
}

// HealthCheck reports whether the database and Redis answer a ping.
//
//	@Summary	Readiness probe
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	errorPayload
//	@Router		/health [get]
func HealthCheck(db *sql.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db, time.Second); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200 while the process serves requests.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RevalidateVersion reports how often a page path was revalidated, for renderers that poll.
//
//	@Summary	Page revalidation version
//	@Tags		ops
//	@Produce	json
//	@Param		path	query		string	true	"page path"
//	@Success	200		{object}	map[string]any
//	@Router		/revalidate [get]
func RevalidateVersion(rv cache.Revalidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Query("path")
		if path == "" {
			return writeError(c, fiber.StatusBadRequest, "PATH_REQUIRED", "path is required")
		}
		v, err := rv.Version(c.UserContext(), path)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"path": path, "version": v})
	}
}
