// Package lastfm provides a small client for the read-only parts of the
// Last.fm API 2.0.
//
// # Overview
//
// Only album lookups are implemented. They need an API key but no session
// or request signing, so a client is cheap to create:
//
//	client, err := lastfm.NewClient(lastfm.Config{APIKey: "your-api-key"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	album, err := client.Album().GetInfo(ctx, "Cher", "Believe")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(album.Cover())
//
// # Errors
//
// API failures are returned as *Error and can be matched by code:
//
//	var lfmErr *lastfm.Error
//	if errors.As(err, &lfmErr) && lfmErr.Code == lastfm.ErrCodeInvalidParameters {
//	    // album not found
//	}
//
// Error codes 11 and 16 are temporary; the client retries them, along with
// network errors and 5xx responses, using exponential backoff capped at 30
// seconds. Config.MaxRetries bounds the number of attempts.
package lastfm
