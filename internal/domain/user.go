// Package domain contains entity without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("name too long")
	ErrNameEmpty   = errors.New("name empty")
)

type (
	// UserID is the stable account (or guest) identity.
	UserID string
	// PeerID identifies one live signaling connection.
	PeerID string
	// SessionID names a media session (room).
	SessionID string
)

type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Guest bool   `json:"guest,omitempty"`
}

// NewGuest mints a throwaway identity for anonymous matchmaking.
func NewGuest() *User {
	id := UserID(uuid.NewString())
	return &User{ID: id, Name: "guest", Guest: true}
}

func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

func (u *User) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	u.Name = name
	return nil
}
