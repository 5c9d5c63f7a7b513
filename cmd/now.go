package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/jellyfin-rpc/internal/config"
	"github.com/jfmyers9/jellyfin-rpc/internal/media"
)

const defaultNowFormat = "{{.Artist}} - {{.Title}}"

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query the configured playback source once and display the current track.

The output format is a Go template. Available fields: .Title, .Artist,
.Album, .Position, .Duration, .Paused

Exit codes:
  0 - Track is currently playing
  1 - Nothing playing, paused, or the source is unreachable`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", defaultNowFormat, "Output format template")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled)")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	snap, err := readOnce(ctx, newSource(cfg, zerolog.Nop()))
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	if snap == nil || snap.Paused {
		os.Exit(1)
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	output, err := formatSnapshot(snap, format)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	fmt.Println(padToWidth(output, width))
	return nil
}

// readOnce reads the current snapshot and closes the source before
// returning, since the caller may exit the process right after.
func readOnce(ctx context.Context, source media.Source) (*media.Snapshot, error) {
	snap, err := source.Current(ctx)
	if cerr := source.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return snap, err
}

// formatSnapshot applies the template to the snapshot. Position and
// Duration are rendered as m:ss.
func formatSnapshot(snap *media.Snapshot, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	data := struct {
		Title, Artist, Album string
		Position, Duration   string
		Paused               bool
	}{
		Title:    snap.Title,
		Artist:   snap.Artist,
		Album:    snap.Album,
		Position: clock(snap.Position),
		Duration: clock(snap.Duration),
		Paused:   snap.Paused,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

func clock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Wide runes can leave a column short of the target
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
