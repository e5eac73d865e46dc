package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filevault/internal/config"
	mailMocks "filevault/internal/mailer/mocks"
)

func newTestStore(t *testing.T, otp config.OTPConfig) (*RedisStore, *miniredis.Miniredis, *mailMocks.MockMailer) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m := new(mailMocks.MockMailer)
	s := NewRedisStore(rdb, m, otp, config.SessionConfig{TTL: time.Hour})
	s.newCode = func(int) (string, error) { return "123456", nil }
	return s, mr, m
}

func defaultOTP() config.OTPConfig {
	return config.OTPConfig{Length: 6, TTL: 15 * time.Minute, MaxAttempts: 3, MaxPerWindow: 2, Window: 10 * time.Minute}
}

func TestRandomCode(t *testing.T) {
	code, err := randomCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 8)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestCreateEmailToken(t *testing.T) {
	ctx := context.Background()

	t.Run("same email keeps its account id", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", "123456", 15*time.Minute).Return(nil).Twice()

		first, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)
		second, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)

		assert.NotEmpty(t, first.AccountID)
		assert.Equal(t, first.AccountID, second.AccountID)
		assert.True(t, mr.Exists(otpKey(first.AccountID)))
		assert.Equal(t, 15*time.Minute, mr.TTL(otpKey(first.AccountID)))
		m.AssertExpectations(t)
	})

	t.Run("throttled after window budget", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)

		_, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)
		_, err = s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)
		_, err = s.CreateEmailToken(ctx, "a@x.com", "")
		assert.ErrorIs(t, err, ErrRateLimited)

		mr.FastForward(11 * time.Minute)
		_, err = s.CreateEmailToken(ctx, "a@x.com", "")
		assert.NoError(t, err)
	})

	t.Run("throttling disabled", func(t *testing.T) {
		otp := defaultOTP()
		otp.MaxPerWindow = 0
		s, _, m := newTestStore(t, otp)
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)

		for i := 0; i < 5; i++ {
			_, err := s.CreateEmailToken(ctx, "a@x.com", "")
			require.NoError(t, err)
		}
	})

	t.Run("known account id rebinds a lost email binding", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", "123456", mock.Anything).Return(nil)

		first, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)
		mr.FlushAll()

		tok, err := s.CreateEmailToken(ctx, "a@x.com", first.AccountID)
		require.NoError(t, err)
		assert.Equal(t, first.AccountID, tok.AccountID)
		bound, err := mr.Get(emailKey("a@x.com"))
		require.NoError(t, err)
		assert.Equal(t, first.AccountID, bound)

		sess, err := s.CreateSession(ctx, first.AccountID, "123456")
		require.NoError(t, err)
		assert.Equal(t, first.AccountID, sess.AccountID)
	})

	t.Run("throttle counter without ttl gets one", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)
		require.NoError(t, mr.Set(throttleKey("a@x.com"), "1"))

		_, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, mr.TTL(throttleKey("a@x.com")))

		mr.FastForward(4 * time.Minute)
		_, err = s.CreateEmailToken(ctx, "a@x.com", "")
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 6*time.Minute, mr.TTL(throttleKey("a@x.com")))
	})

	t.Run("mail failure discards the code", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		tok, err := s.CreateEmailToken(ctx, "a@x.com", "")

		assert.Nil(t, tok)
		assert.ErrorContains(t, err, "smtp down")
		id, _ := mr.Get(emailKey("a@x.com"))
		assert.False(t, mr.Exists(otpKey(id)))
	})
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code yields a session and is consumed", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)
		tok, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)

		sess, err := s.CreateSession(ctx, tok.AccountID, "123456")
		require.NoError(t, err)
		assert.Equal(t, tok.AccountID, sess.AccountID)
		assert.Len(t, sess.Secret, 64)
		assert.Equal(t, time.Hour, mr.TTL(sessionKey(sess.Secret)))

		_, err = s.CreateSession(ctx, tok.AccountID, "123456")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("wrong code exhausts attempts", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)
		tok, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err = s.CreateSession(ctx, tok.AccountID, "000000")
			assert.ErrorIs(t, err, ErrInvalidCode)
		}
		assert.False(t, mr.Exists(otpKey(tok.AccountID)))

		_, err = s.CreateSession(ctx, tok.AccountID, "123456")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("expired code", func(t *testing.T) {
		s, mr, m := newTestStore(t, defaultOTP())
		m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)
		tok, err := s.CreateEmailToken(ctx, "a@x.com", "")
		require.NoError(t, err)

		mr.FastForward(16 * time.Minute)

		_, err = s.CreateSession(ctx, tok.AccountID, "123456")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr, m := newTestStore(t, defaultOTP())
	m.On("SendOTP", ctx, "a@x.com", mock.Anything, mock.Anything).Return(nil)
	tok, err := s.CreateEmailToken(ctx, "a@x.com", "")
	require.NoError(t, err)
	created, err := s.CreateSession(ctx, tok.AccountID, "123456")
	require.NoError(t, err)

	got, err := s.GetSession(ctx, created.Secret)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Secret, got.Secret)
	assert.Equal(t, tok.AccountID, got.AccountID)

	require.NoError(t, s.DeleteSession(ctx, created.Secret))
	_, err = s.GetSession(ctx, created.Secret)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, s.DeleteSession(ctx, "unknown"))
	_, err = s.GetSession(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, mr.Exists(sessionKey(created.Secret)))
}
