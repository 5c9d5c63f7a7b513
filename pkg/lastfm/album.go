package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
)

// AlbumService provides album lookups. None of its methods require a
// session key.
type AlbumService struct {
	client *Client
}

// GetInfo fetches album metadata, including cover images.
//
// Last.fm autocorrects misspelled artist names. An unknown album is
// reported as an *Error with code ErrCodeInvalidParameters.
//
// Example:
//
//	album, err := client.Album().GetInfo(ctx, "Cher", "Believe")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(album.Cover())
func (s *AlbumService) GetInfo(ctx context.Context, artist, album string) (*Album, error) {
	if artist == "" || album == "" {
		return nil, fmt.Errorf("lastfm: artist and album are required")
	}

	params := map[string]string{
		"artist":      artist,
		"album":       album,
		"autocorrect": "1",
	}

	inner, err := s.client.call(ctx, "album.getInfo", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		XMLName xml.Name `xml:"album"`
		Album
	}
	if err := xml.Unmarshal(inner, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse album response: %w", err)
	}

	return &resp.Album, nil
}
