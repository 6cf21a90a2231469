package content

import (
	"encoding/json"
	"fmt"
)

// MediaKind tells which representation of an image a Media value holds.
type MediaKind uint8

const (
	MediaNone   MediaKind = iota // no image
	MediaRemote                  // URL produced by the backend (generated or stored)
	MediaUpload                  // Telegram file handle uploaded by the user
)

func (k MediaKind) String() string {
	switch k {
	case MediaNone:
		return "none"
	case MediaRemote:
		return "remote"
	case MediaUpload:
		return "upload"
	default:
		return fmt.Sprintf("MediaKind(%d)", uint8(k))
	}
}

// Media is an image reference. Only one representation is active at a time;
// the constructors are the only way to build a non-empty value.
type Media struct {
	kind MediaKind
	ref  string
}

// NoMedia returns the absent reference.
func NoMedia() Media { return Media{} }

// RemoteMedia references an image by URL. An empty URL yields NoMedia.
func RemoteMedia(url string) Media {
	if url == "" {
		return Media{}
	}
	return Media{kind: MediaRemote, ref: url}
}

// UploadedMedia references an image uploaded to Telegram by file id.
// An empty id yields NoMedia.
func UploadedMedia(fileID string) Media {
	if fileID == "" {
		return Media{}
	}
	return Media{kind: MediaUpload, ref: fileID}
}

func (m Media) Kind() MediaKind { return m.kind }
func (m Media) Present() bool   { return m.kind != MediaNone }

// URL returns the remote URL, or "" for other kinds.
func (m Media) URL() string {
	if m.kind == MediaRemote {
		return m.ref
	}
	return ""
}

// FileID returns the Telegram file id, or "" for other kinds.
func (m Media) FileID() string {
	if m.kind == MediaUpload {
		return m.ref
	}
	return ""
}

// Equal reports whether both references point at the same image.
func (m Media) Equal(o Media) bool { return m.kind == o.kind && m.ref == o.ref }

func (m Media) String() string {
	if m.kind == MediaNone {
		return "none"
	}
	return m.kind.String() + ":" + m.ref
}

type mediaJSON struct {
	Kind   string `json:"kind"`
	URL    string `json:"url,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

func (m Media) MarshalJSON() ([]byte, error) {
	return json.Marshal(mediaJSON{Kind: m.kind.String(), URL: m.URL(), FileID: m.FileID()})
}

func (m *Media) UnmarshalJSON(data []byte) error {
	var raw mediaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode media reference: %w", err)
	}
	switch raw.Kind {
	case "", "none":
		*m = NoMedia()
	case "remote":
		*m = RemoteMedia(raw.URL)
	case "upload":
		*m = UploadedMedia(raw.FileID)
	default:
		return fmt.Errorf("unknown media kind %q", raw.Kind)
	}
	return nil
}

// File is an image or audio payload ready to be sent to the backend.
type File struct {
	Name string
	Data []byte
}
