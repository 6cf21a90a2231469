package content

import (
	"regexp"
	"strings"
)

const FieldVideoLink Field = "video_link"

var youTubeLink = regexp.MustCompile(`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/(watch\?v=|embed/|v/|shorts/|.+\?v=)?([^&=%\?]{11})`)

// ValidateYouTubeURL checks that raw looks like a YouTube video link.
func ValidateYouTubeURL(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", &ValidationError{Field: FieldVideoLink, Reason: ReasonEmpty}
	}
	if !youTubeLink.MatchString(v) {
		return "", &ValidationError{Field: FieldVideoLink, Reason: ReasonInvalid}
	}
	return v, nil
}
