package discord

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrUnavailable is returned by Connect when no Discord client answers
	// on any IPC socket.
	ErrUnavailable = errors.New("discord: not running")

	// ErrConnectionLost is returned by Push and Clear when the IPC
	// connection is severed or was never established. Callers should
	// Connect again before the next attempt.
	ErrConnectionLost = errors.New("discord: connection lost")
)

type rpcClient interface {
	SetActivity(*Activity) error
	Close() error
}

// Presence manages the Discord Rich Presence connection.
type Presence struct {
	appID   string
	logger  zerolog.Logger
	client  rpcClient
	connect func(string) (rpcClient, error)
}

func New(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:  appID,
		logger: logger.With().Str("component", "discord").Logger(),
		connect: func(appID string) (rpcClient, error) {
			return ipcConnect(appID)
		},
	}
}

// Connect opens the IPC connection if it is not already open.
func (p *Presence) Connect() error {
	if p.client != nil {
		return nil
	}
	client, err := p.connect(p.appID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	return nil
}

// Connected reports whether an IPC connection is open.
func (p *Presence) Connected() bool {
	return p.client != nil
}

// Push sets the activity shown on the user's profile.
func (p *Presence) Push(a Activity) error {
	return p.set(&a)
}

// Clear removes the activity.
func (p *Presence) Clear() error {
	return p.set(nil)
}

func (p *Presence) set(a *Activity) error {
	if p.client == nil {
		return ErrConnectionLost
	}

	err := p.client.SetActivity(a)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	p.logger.Warn().Err(err).Msg("Disconnected from Discord")
	_ = p.Close()
	return fmt.Errorf("%w: %w", ErrConnectionLost, err)
}

// Close closes the IPC connection.
func (p *Presence) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
