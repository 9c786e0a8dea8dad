package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/protect"
)

// Manager is the identity state machine over {anonymous, identified}.
//
// Device UUID continuity is deliberately asymmetric: an anonymous
// identity keeps its UUID when it becomes identified so prior
// anonymous purchases stay linked, but switching between two different
// identified users mints a fresh UUID because the device linkage no
// longer belongs to the outgoing user.
type Manager struct {
	log   *zap.Logger
	store Store

	current *protect.Guarded[Identity]
}

func NewManager(ctx context.Context, log *zap.Logger, store Store) (*Manager, error) {
	cached, err := store.GetIdentity(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "reading cached identity")
	}

	return &Manager{
		log:     log,
		store:   store,
		current: protect.New(cached),
	}, nil
}

// Current returns the identity as of the last login/logout.
func (m *Manager) Current() Identity {
	return m.current.Load()
}

// Login resolves the identity for userID. An empty userID requests an
// anonymous session.
func (m *Manager) Login(ctx context.Context, userID string) (Identity, error) {
	var (
		result Identity
		err    error
	)

	m.current.Mutate(func(cached *Identity) {
		next, changed := nextIdentity(*cached, userID)
		if !changed {
			result = *cached
			return
		}

		if err = m.store.SetIdentity(ctx, next); err != nil {
			err = errors.Wrap(err, "persisting identity")
			return
		}

		m.log.Debug("Identity updated",
			zap.String("user_id", next.UserID),
			zap.Bool("anonymous", next.IsAnonymous()),
			zap.Bool("device_uuid_reused", next.DeviceUUID == cached.DeviceUUID),
		)

		*cached = next
		result = next
	})

	return result, err
}

// Logout discards the identity and mints a fresh anonymous one. There
// is no undo; the previous identity is unrecoverable.
func (m *Manager) Logout(ctx context.Context) (Identity, error) {
	next := Identity{
		UserID:     mintAnonymousID(),
		DeviceUUID: uuid.NewString(),
	}

	var err error
	m.current.Mutate(func(cached *Identity) {
		if err = m.store.SetIdentity(ctx, next); err != nil {
			err = errors.Wrap(err, "persisting identity")
			return
		}
		*cached = next
	})
	if err != nil {
		return Identity{}, err
	}

	m.log.Debug("Logged out", zap.String("user_id", next.UserID))
	return next, nil
}

// LanguageCode reads the persisted language code, empty when unset.
func (m *Manager) LanguageCode(ctx context.Context) string {
	code, err := m.store.GetLanguageCode(ctx)
	if err != nil {
		return ""
	}
	return code
}

func (m *Manager) SetLanguageCode(ctx context.Context, code string) error {
	return m.store.SetLanguageCode(ctx, code)
}

// nextIdentity applies the login rules to the cached identity and
// reports whether anything changed.
func nextIdentity(cached Identity, userID string) (Identity, bool) {
	if userID == "" {
		if !cached.IsZero() {
			return cached, false
		}
		return Identity{
			UserID:     mintAnonymousID(),
			DeviceUUID: uuid.NewString(),
		}, true
	}

	if userID == cached.UserID {
		return cached, false
	}

	next := Identity{UserID: userID}
	switch {
	case cached.IsZero():
		next.DeviceUUID = uuid.NewString()
	case cached.IsAnonymous():
		// Keep the anonymous device UUID to preserve purchase linkage.
		next.DeviceUUID = cached.DeviceUUID
		if next.DeviceUUID == "" {
			next.DeviceUUID = uuid.NewString()
		}
	default:
		// Identified -> different identified user invalidates the
		// device linkage.
		next.DeviceUUID = uuid.NewString()
	}
	return next, true
}

func mintAnonymousID() string {
	return AnonymousIDPrefix + uuid.NewString()
}
