package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"filevault/internal/config"
	"filevault/internal/service"
)

// sessionRef reads the session cookie. A missing cookie yields an empty ref.
func sessionRef(c *fiber.Ctx, cfg config.SessionConfig) service.SessionRef {
	return service.SessionRef{Secret: c.Cookies(cfg.CookieName)}
}

func sessionCookie(cfg config.SessionConfig, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

// SignUp creates an account, or returns the existing one for a known email.
//
//	@Summary	Create account
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.CreateAccountParams	true	"new account"
//	@Success	200		{object}	service.AccountResult
//	@Failure	400		{object}	errorPayload
//	@Failure	429		{object}	errorPayload
//	@Router		/auth/sign-up [post]
func SignUp(ids service.IdentityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p service.CreateAccountParams
		if err := c.BodyParser(&p); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := ids.CreateAccount(c.UserContext(), p)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// SignIn sends a one-time code to an existing user.
//
//	@Summary	Request sign-in code
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.SignInParams	true	"email"
//	@Success	200		{object}	service.AccountResult
//	@Failure	429		{object}	errorPayload
//	@Router		/auth/sign-in [post]
func SignIn(ids service.IdentityService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p service.SignInParams
		if err := c.BodyParser(&p); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := ids.SignIn(c.UserContext(), p)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// VerifyOTP exchanges a one-time code for a session and sets the session cookie.
//
//	@Summary	Verify one-time code
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.VerifyOTPParams	true	"account id and code"
//	@Success	200		{object}	map[string]string
//	@Failure	401		{object}	errorPayload
//	@Router		/auth/verify [post]
func VerifyOTP(ids service.IdentityService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p service.VerifyOTPParams
		if err := c.BodyParser(&p); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		sess, err := ids.VerifyOTP(c.UserContext(), p)
		if err != nil {
			return err
		}
		expires := sess.ExpiresAt
		if expires.IsZero() {
			expires = time.Now().Add(cfg.TTL)
		}
		c.Cookie(sessionCookie(cfg, sess.Secret, expires))
		return c.JSON(fiber.Map{"sessionId": sess.ID})
	}
}

// CurrentUser returns the signed-in user, or null when there is none.
//
//	@Summary	Current user
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	model.User
//	@Router		/auth/me [get]
func CurrentUser(ids service.IdentityService, cfg config.SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := ids.CurrentUser(c.UserContext(), sessionRef(c, cfg))
		if err != nil {
			return err
		}
		// A nil user encodes as null.
		return c.JSON(u)
	}
}

// SignOut deletes the session, clears the cookie and redirects to sign-in.
// The cookie is cleared and the redirect sent even when deletion fails.
//
//	@Summary	Sign out
//	@Tags		auth
//	@Success	303
//	@Router		/auth/sign-out [post]
func SignOut(ids service.IdentityService, cfg config.SessionConfig, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ref := sessionRef(c, cfg); ref.Secret != "" {
			if err := ids.SignOut(c.UserContext(), ref); err != nil {
				log.WithError(err).WithField("request_id", requestIDFromCtx(c)).Warn("session delete failed on sign-out")
			}
		}
		c.Cookie(sessionCookie(cfg, "", time.Unix(0, 0)))
		return c.Redirect(cfg.SignInPath, fiber.StatusSeeOther)
	}
}
