package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"filevault/internal/account"
	"filevault/internal/metrics"
	"filevault/internal/model"
	"filevault/internal/repository"
)

// SessionRef identifies the caller's session. It is read from the session
// cookie by the HTTP layer and passed explicitly into authenticated calls.
type SessionRef struct {
	Secret string
}

// CreateAccountParams are the inputs of IdentityService.CreateAccount.
type CreateAccountParams struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// SignInParams are the inputs of IdentityService.SignIn.
type SignInParams struct {
	Email string `json:"email"`
}

// VerifyOTPParams are the inputs of IdentityService.VerifyOTP.
type VerifyOTPParams struct {
	AccountID string `json:"accountId"`
	OTP       string `json:"otp"`
}

// AccountResult is returned by sign-up and sign-in. AccountID is nil and
// Error is set when sign-in finds no user.
type AccountResult struct {
	AccountID *string `json:"accountId"`
	Error     string  `json:"error,omitempty"`
}

const userNotFoundMessage = "User not found"

// IdentityService defines the account and session use cases.
type IdentityService interface {
	// LookupUserByEmail returns the user with this email, or nil if there is none.
	LookupUserByEmail(ctx context.Context, email string) (*model.User, error)

	// RequestOTP emails a one-time code and returns the account id it is bound to.
	RequestOTP(ctx context.Context, email string) (string, error)

	// CreateAccount is idempotent per email: an existing user's account id is
	// returned without sending a code.
	CreateAccount(ctx context.Context, p CreateAccountParams) (*AccountResult, error)

	// VerifyOTP exchanges a code for a session.
	VerifyOTP(ctx context.Context, p VerifyOTPParams) (*model.Session, error)

	// CurrentUser resolves the session's user. Nil without error means not authenticated.
	CurrentUser(ctx context.Context, ref SessionRef) (*model.User, error)

	// SignOut deletes the session.
	SignOut(ctx context.Context, ref SessionRef) error

	// SignIn sends a code to an existing user. Unknown emails are reported in the result.
	SignIn(ctx context.Context, p SignInParams) (*AccountResult, error)
}

type identityService struct {
	users     repository.UserRepository
	accounts  account.Store
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	avatarURL string
}

// NewIdentityService constructs a new IdentityService.
func NewIdentityService(users repository.UserRepository, accounts account.Store, m *metrics.Metrics, log logrus.FieldLogger, avatarURL string) IdentityService {
	return &identityService{
		users:     users,
		accounts:  accounts,
		metrics:   m,
		log:       log.WithField("component", "identity"),
		avatarURL: avatarURL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(op, email string) error {
	if email == "" {
		return invalid(op, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid(op, "email is malformed")
	}
	return nil
}

func (s *identityService) LookupUserByEmail(ctx context.Context, email string) (*model.User, error) {
	const op = "lookup user"
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platform(op, err)
	}
	return u, nil
}

func (s *identityService) RequestOTP(ctx context.Context, email string) (_ string, err error) {
	const op = "request otp"
	ctx, span := tracer.Start(ctx, "IdentityService.RequestOTP")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if err := validateEmail(op, email); err != nil {
		return "", err
	}
	return s.sendOTP(ctx, op, email, "")
}

// sendOTP mints and mails a code. A non-empty accountID is the user's durable
// account id and the code must be issued under it.
func (s *identityService) sendOTP(ctx context.Context, op, email, accountID string) (string, error) {
	tok, err := s.accounts.CreateEmailToken(ctx, email, accountID)
	switch {
	case errors.Is(err, account.ErrRateLimited):
		s.metrics.OTPRequests.WithLabelValues("rate_limited").Inc()
		return "", &Error{Op: op, Kind: ErrRateLimited, Err: err}
	case err != nil:
		s.metrics.OTPRequests.WithLabelValues("error").Inc()
		return "", platform(op, err)
	case tok == nil || tok.AccountID == "":
		s.metrics.OTPRequests.WithLabelValues("error").Inc()
		return "", &Error{Op: op, Kind: ErrOTPDispatch}
	case accountID != "" && tok.AccountID != accountID:
		s.metrics.OTPRequests.WithLabelValues("error").Inc()
		return "", &Error{Op: op, Kind: ErrOTPDispatch, Err: fmt.Errorf("code issued for account %s, want %s", tok.AccountID, accountID)}
	}

	s.metrics.OTPRequests.WithLabelValues("sent").Inc()
	return tok.AccountID, nil
}

func (s *identityService) CreateAccount(ctx context.Context, p CreateAccountParams) (_ *AccountResult, err error) {
	const op = "create account"
	ctx, span := tracer.Start(ctx, "IdentityService.CreateAccount")
	defer func() { endSpan(span, err) }()

	fullName := strings.TrimSpace(p.FullName)
	email := normalizeEmail(p.Email)
	if fullName == "" {
		return nil, invalid(op, "full name is required")
	}
	if err := validateEmail(op, email); err != nil {
		return nil, err
	}

	existing, err := s.LookupUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &AccountResult{AccountID: &existing.AccountID}, nil
	}

	accountID, err := s.RequestOTP(ctx, email)
	if err != nil {
		return nil, err
	}

	_, err = s.users.Create(ctx, &model.User{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     email,
		AvatarURL: s.avatarURL,
		AccountID: accountID,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent sign-up for the same email.
		existing, lookupErr := s.LookupUserByEmail(ctx, email)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return &AccountResult{AccountID: &existing.AccountID}, nil
		}
	}
	if err != nil {
		return nil, platform(op, err)
	}

	s.log.WithField("account_id", accountID).Info("account created")
	return &AccountResult{AccountID: &accountID}, nil
}

func (s *identityService) VerifyOTP(ctx context.Context, p VerifyOTPParams) (_ *model.Session, err error) {
	const op = "verify otp"
	ctx, span := tracer.Start(ctx, "IdentityService.VerifyOTP")
	defer func() { endSpan(span, err) }()

	accountID := strings.TrimSpace(p.AccountID)
	code := strings.TrimSpace(p.OTP)
	if accountID == "" || code == "" {
		return nil, invalid(op, "account id and otp are required")
	}

	sess, err := s.accounts.CreateSession(ctx, accountID, code)
	switch {
	case errors.Is(err, account.ErrInvalidCode):
		s.metrics.Sessions.WithLabelValues("create", "rejected").Inc()
		return nil, &Error{Op: op, Kind: ErrUnauthenticated, Err: err}
	case err != nil:
		s.metrics.Sessions.WithLabelValues("create", "error").Inc()
		return nil, platform(op, err)
	case sess == nil || sess.Secret == "":
		s.metrics.Sessions.WithLabelValues("create", "error").Inc()
		return nil, &Error{Op: op, Kind: ErrSessionCreation}
	}

	s.metrics.Sessions.WithLabelValues("create", "ok").Inc()
	return sess, nil
}

func (s *identityService) CurrentUser(ctx context.Context, ref SessionRef) (*model.User, error) {
	const op = "current user"
	if ref.Secret == "" {
		return nil, nil
	}

	sess, err := s.accounts.GetSession(ctx, ref.Secret)
	if errors.Is(err, account.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platform(op, err)
	}

	u, err := s.users.FindByAccountID(ctx, sess.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platform(op, err)
	}
	return u, nil
}

func (s *identityService) SignOut(ctx context.Context, ref SessionRef) error {
	const op = "sign out"
	if err := s.accounts.DeleteSession(ctx, ref.Secret); err != nil {
		s.metrics.Sessions.WithLabelValues("delete", "error").Inc()
		return platform(op, err)
	}
	s.metrics.Sessions.WithLabelValues("delete", "ok").Inc()
	return nil
}

func (s *identityService) SignIn(ctx context.Context, p SignInParams) (_ *AccountResult, err error) {
	const op = "sign in"
	ctx, span := tracer.Start(ctx, "IdentityService.SignIn")
	defer func() { endSpan(span, err) }()

	email := normalizeEmail(p.Email)
	if err := validateEmail(op, email); err != nil {
		return nil, err
	}

	existing, err := s.LookupUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &AccountResult{AccountID: nil, Error: userNotFoundMessage}, nil
	}

	if _, err := s.sendOTP(ctx, op, email, existing.AccountID); err != nil {
		return nil, err
	}
	return &AccountResult{AccountID: &existing.AccountID}, nil
}

// requireUser resolves the current user or fails with ErrUnauthenticated.
func requireUser(ctx context.Context, ids IdentityService, op string, ref SessionRef) (*model.User, error) {
	u, err := ids.CurrentUser(ctx, ref)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, unauthenticated(op)
	}
	return u, nil
}
