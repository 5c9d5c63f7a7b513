package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// UnitName is the systemd user unit the install command manages.
const UnitName = "jellyfin-rpc.service"

const unitTemplate = `[Unit]
Description=Jellyfin Discord Rich Presence
After=network-online.target

[Service]
Type=simple
ExecStart={{quote .BinaryPath}} daemon{{if .ConfigPath}} --config {{quote .ConfigPath}}{{end}} --log-file {{logFile .LogPath | quote}}
WorkingDirectory={{specifiers .WorkingDirectory}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// UnitConfig holds the configuration for generating a systemd unit
type UnitConfig struct {
	BinaryPath       string
	ConfigPath       string // Optional explicit settings file
	LogPath          string
	WorkingDirectory string
}

// GenerateUnit renders the systemd user unit for the daemon
func GenerateUnit(config UnitConfig) (string, error) {
	tmpl, err := template.New("unit").Funcs(unitFuncs).Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

var unitFuncs = template.FuncMap{
	"quote":      quoteArg,
	"specifiers": escapeSpecifiers,
	"logFile": func(dir string) string {
		return filepath.Join(dir, "jellyfin-rpc.log")
	},
}

var (
	argEscaper       = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "%", "%%", "$", "$$")
	specifierEscaper = strings.NewReplacer("%", "%%")
)

// quoteArg renders s as one double-quoted ExecStart argument.
func quoteArg(s string) string {
	return `"` + argEscaper.Replace(s) + `"`
}

func escapeSpecifiers(s string) string {
	return specifierEscaper.Replace(s)
}

// GetUnitPath returns the path where the unit should be installed
func GetUnitPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}

	return filepath.Join(dir, "systemd", "user", UnitName), nil
}

// GetDefaultLogPath returns the default directory for daemon logs
func GetDefaultLogPath() (string, error) {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "state")
	}

	return filepath.Join(dir, "jellyfin-rpc"), nil
}
