package media

import (
	"github.com/godbus/dbus/v5"
)

// DBusClient defines the D-Bus operations the MPRIS source needs.
// This abstraction allows us to mock D-Bus interactions in tests.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/jfmyers9/jellyfin-rpc/internal/media DBusClient
type DBusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// GetNameOwner returns the unique name that owns the given well-known name
	GetNameOwner(name string) (string, error)

	// GetProperty retrieves a property from a D-Bus object
	// player: The bus name (e.g., "org.mpris.MediaPlayer2.Feishin")
	// path: The object path (e.g., "/org/mpris/MediaPlayer2")
	// prop: The property name (e.g., "org.mpris.MediaPlayer2.Player.Metadata")
	GetProperty(player, path, prop string) (dbus.Variant, error)
}

// SessionBusClient is the real implementation using godbus
type SessionBusClient struct {
	conn *dbus.Conn
}

// NewSessionBusClient opens a private connection to the session bus.
// A private connection can be closed without affecting other users of the
// shared one.
func NewSessionBusClient() (*SessionBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &SessionBusClient{conn: conn}, nil
}

// Close closes the D-Bus connection
func (c *SessionBusClient) Close() error {
	return c.conn.Close()
}

// GetNameOwner returns the unique name that owns the given well-known name
func (c *SessionBusClient) GetNameOwner(name string) (string, error) {
	var owner string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

// GetProperty retrieves a property from a D-Bus object
func (c *SessionBusClient) GetProperty(player, path, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(player, dbus.ObjectPath(path))
	return obj.GetProperty(prop)
}
