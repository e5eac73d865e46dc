// Package model contains the domain models shared by the repository, service
// and HTTP layers. Models carry JSON tags only; persistence mapping lives in
// the repository implementations.
package model

import "time"

// User is the profile document created on first sign-up.
// AccountID is issued by the account store and never changes.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an authenticated session bound to an account.
// Secret is the opaque value carried by the session cookie.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
