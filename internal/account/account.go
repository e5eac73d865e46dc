// Package account issues email one-time passwords and manages sessions in Redis.
//
// Keys:
//
//	account:email:<email>   account id bound to an email (no TTL)
//	otp:<accountID>         hash {email, code_hash, attempts}, TTL = OTP TTL
//	otp:rl:<email>          request counter, TTL = throttle window
//	session:<secret>        JSON model.Session, TTL = session TTL
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"filevault/internal/config"
	"filevault/internal/mailer"
	"filevault/internal/model"
)

var (
	// ErrInvalidCode is returned when the OTP is wrong, expired or exhausted.
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrRateLimited is returned when too many codes were requested for one email.
	ErrRateLimited = errors.New("too many code requests")
	// ErrSessionNotFound is returned for unknown or expired session secrets.
	ErrSessionNotFound = errors.New("session not found")
)

// Token describes a freshly issued OTP. The code itself only travels by email.
type Token struct {
	AccountID string
	Email     string
	ExpiresAt time.Time
}

// Store is the account and session platform used by the identity service.
type Store interface {
	// CreateEmailToken mints an OTP for email and mails the code. A non-empty
	// accountID is the durable id for email and (re)binds it; otherwise the
	// email's bound id is used, generating one on first use.
	CreateEmailToken(ctx context.Context, email, accountID string) (*Token, error)
	// CreateSession exchanges a valid OTP for a session. The OTP is consumed.
	CreateSession(ctx context.Context, accountID, code string) (*model.Session, error)
	// GetSession resolves a session secret.
	GetSession(ctx context.Context, secret string) (*model.Session, error)
	// DeleteSession removes a session. Deleting an unknown session is not an error.
	DeleteSession(ctx context.Context, secret string) error
}

// RedisStore implements Store on go-redis.
type RedisStore struct {
	rdb     *redis.Client
	mail    mailer.Mailer
	otp     config.OTPConfig
	session config.SessionConfig
	now     func() time.Time
	newCode func(length int) (string, error)
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(rdb *redis.Client, mail mailer.Mailer, otp config.OTPConfig, session config.SessionConfig) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		mail:    mail,
		otp:     otp,
		session: session,
		now:     time.Now,
		newCode: randomCode,
	}
}

var _ Store = (*RedisStore)(nil)

func emailKey(email string) string { return "account:email:" + strings.ToLower(email) }
func otpKey(accountID string) string { return "otp:" + accountID }
func throttleKey(email string) string { return "otp:rl:" + strings.ToLower(email) }
func sessionKey(secret string) string { return "session:" + secret }

func (s *RedisStore) CreateEmailToken(ctx context.Context, email, accountID string) (*Token, error) {
	if err := s.throttle(ctx, email); err != nil {
		return nil, err
	}

	accountID, err := s.accountFor(ctx, email, accountID)
	if err != nil {
		return nil, err
	}

	code, err := s.newCode(s.otp.Length)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	key := otpKey(accountID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "email", email, "code_hash", hashCode(code), "attempts", 0)
	pipe.Expire(ctx, key, s.otp.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	if err := s.mail.SendOTP(ctx, email, code, s.otp.TTL); err != nil {
		_ = s.rdb.Del(ctx, key).Err()
		return nil, err
	}

	return &Token{AccountID: accountID, Email: email, ExpiresAt: s.now().Add(s.otp.TTL)}, nil
}

func (s *RedisStore) CreateSession(ctx context.Context, accountID, code string) (*model.Session, error) {
	key := otpKey(accountID)
	vals, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}
	stored, ok := vals["code_hash"]
	if !ok {
		return nil, ErrInvalidCode
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashCode(code))) != 1 {
		attempts, err := s.rdb.HIncrBy(ctx, key, "attempts", 1).Result()
		if err == nil && s.otp.MaxAttempts > 0 && attempts >= int64(s.otp.MaxAttempts) {
			_ = s.rdb.Del(ctx, key).Err()
		}
		return nil, ErrInvalidCode
	}

	// Only the caller that actually removes the key may create the session.
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if n == 0 {
		return nil, ErrInvalidCode
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	now := s.now().UTC()
	sess := &model.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(s.session.TTL),
	}
	b, err := json.Marshal(storedSession{Session: *sess, Secret: secret})
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, sessionKey(secret), b, s.session.TTL).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) GetSession(ctx context.Context, secret string) (*model.Session, error) {
	if secret == "" {
		return nil, ErrSessionNotFound
	}
	b, err := s.rdb.Get(ctx, sessionKey(secret)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var st storedSession
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	st.Session.Secret = st.Secret
	return &st.Session, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKey(secret)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// storedSession persists the secret, which model.Session hides from JSON.
type storedSession struct {
	model.Session
	Secret string `json:"secret"`
}

func (s *RedisStore) throttle(ctx context.Context, email string) error {
	if s.otp.MaxPerWindow <= 0 {
		return nil
	}
	key := throttleKey(email)
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// EXPIRE NX keeps the window anchored at the first request and still
	// repairs a counter that lost its TTL.
	pipe.ExpireNX(ctx, key, s.otp.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle otp: %w", err)
	}
	if incr.Val() > int64(s.otp.MaxPerWindow) {
		return ErrRateLimited
	}
	return nil
}

// accountFor returns the account id bound to email. A known id overwrites the
// binding; otherwise one is created if absent.
func (s *RedisStore) accountFor(ctx context.Context, email, known string) (string, error) {
	key := emailKey(email)
	if known != "" {
		if err := s.rdb.Set(ctx, key, known, 0).Err(); err != nil {
			return "", fmt.Errorf("bind account: %w", err)
		}
		return known, nil
	}
	if _, err := s.rdb.SetNX(ctx, key, uuid.NewString(), 0).Result(); err != nil {
		return "", fmt.Errorf("bind account: %w", err)
	}
	id, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	return id, nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func randomCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
