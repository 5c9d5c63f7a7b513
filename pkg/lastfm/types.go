package lastfm

// Image sizes reported by Last.fm, smallest first.
const (
	ImageSmall      = "small"
	ImageMedium     = "medium"
	ImageLarge      = "large"
	ImageExtraLarge = "extralarge"
	ImageMega       = "mega"
)

// Image is one cover rendition.
type Image struct {
	Size string `xml:"size,attr"`
	URL  string `xml:",chardata"`
}

// Album represents the response from album.getInfo.
type Album struct {
	Name   string  `xml:"name"`
	Artist string  `xml:"artist"`
	MBID   string  `xml:"mbid"`
	URL    string  `xml:"url"`
	Images []Image `xml:"image"`
}

// Cover returns the largest non-empty image URL, or "" when Last.fm has no
// cover for the album.
func (a *Album) Cover() string {
	best, bestRank := "", -1
	for _, img := range a.Images {
		if img.URL == "" {
			continue
		}
		if rank := imageRank(img.Size); rank > bestRank {
			best, bestRank = img.URL, rank
		}
	}
	return best
}

func imageRank(size string) int {
	switch size {
	case ImageSmall:
		return 0
	case ImageMedium:
		return 1
	case ImageLarge:
		return 2
	case ImageExtraLarge:
		return 3
	case ImageMega:
		return 4
	default:
		return -1
	}
}
