package content

import (
	"slices"
	"time"
)

// Kind distinguishes the two kinds of content the bot works with.
type Kind string

const (
	KindPublication Kind = "publication"
	KindVideoCut    Kind = "video_cut"
)

// Status is the lifecycle status of a content item on the backend.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusModeration Status = "moderation"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusPublished  Status = "published"
)

// PublishSettings selects the social networks an item goes to.
// Publications use Telegram/VKontakte, video cuts use YouTube/Instagram.
type PublishSettings struct {
	Telegram  bool `json:"telegram,omitempty"`
	VKontakte bool `json:"vkontakte,omitempty"`
	YouTube   bool `json:"youtube,omitempty"`
	Instagram bool `json:"instagram,omitempty"`
}

// Any reports whether at least one network is selected.
func (s PublishSettings) Any() bool {
	return s.Telegram || s.VKontakte || s.YouTube || s.Instagram
}

// Item is a publication or a video cut as returned by the content backend.
type Item struct {
	ID             int64     `json:"id"`
	Kind           Kind      `json:"kind"`
	OrganizationID int64     `json:"organization_id"`
	CreatorID      int64     `json:"creator_id"`
	CategoryID     int64     `json:"category_id,omitempty"`
	Status         Status    `json:"status"`
	Reference      string    `json:"reference,omitempty"` // source text or YouTube link
	VideoURL       string    `json:"video_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	Name     string          `json:"name"`
	Text     string          `json:"text"`
	Tags     []string        `json:"tags"`
	Media    Media           `json:"media"`
	Settings PublishSettings `json:"settings"`
}

// Ref identifies the item on the backend.
func (it Item) Ref() ItemRef { return ItemRef{Kind: it.Kind, ID: it.ID} }

// Snapshot extracts the editable fields of the item.
func (it Item) Snapshot() Snapshot {
	return Snapshot{
		Name:     it.Name,
		Text:     it.Text,
		Tags:     slices.Clone(it.Tags),
		Media:    it.Media,
		Settings: it.Settings,
	}
}

// ItemRef is the backend identity of an item.
type ItemRef struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// Snapshot holds the editable fields of an item. Original and Working
// snapshots of the same item are compared field by field.
type Snapshot struct {
	Name     string          `json:"name"`
	Text     string          `json:"text"`
	Tags     []string        `json:"tags"`
	Media    Media           `json:"media"`
	Settings PublishSettings `json:"settings"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Tags = slices.Clone(s.Tags)
	return s
}

// Category describes the generation style of a publication category.
type Category struct {
	ID               int64  `json:"id"`
	OrganizationID   int64  `json:"organization_id"`
	Name             string `json:"name"`
	TextStylePrompt  string `json:"prompt_for_text_style"`
	ImageStylePrompt string `json:"prompt_for_image_style"`
}

// Generated is the result of a text generation call.
type Generated struct {
	Name string   `json:"name"`
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}
