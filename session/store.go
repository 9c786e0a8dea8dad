package session

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("session value not found")

// AnonymousIDPrefix marks user ids minted locally before any login.
// The prefix is reserved: backend-issued ids never carry it.
const AnonymousIDPrefix = "anon$"

// Identity is the process-lifetime user identity. Mutated only by
// login/logout, persisted to the session store on every mutation.
type Identity struct {
	UserID     string
	DeviceUUID string
}

func (i Identity) IsAnonymous() bool {
	return strings.HasPrefix(i.UserID, AnonymousIDPrefix)
}

func (i Identity) IsZero() bool {
	return i.UserID == "" && i.DeviceUUID == ""
}

// Store is a small key/value cache persisting session state across
// process restarts. Implementations must be safe for concurrent use.
type Store interface {
	GetIdentity(ctx context.Context) (Identity, error)
	SetIdentity(ctx context.Context, identity Identity) error

	GetLanguageCode(ctx context.Context) (string, error)
	SetLanguageCode(ctx context.Context, code string) error
}
