package backend

import (
	"time"

	"kontur-content-bot/internal/content"
)

// Employee is an organization member as known to the employee service.
type Employee struct {
	ID                 int64  `json:"id"`
	AccountID          int64  `json:"account_id"`
	OrganizationID     int64  `json:"organization_id"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	RequiredModeration bool   `json:"required_moderation"`
}

// SocialNetwork is one connected channel of an organization.
type SocialNetwork struct {
	ID         int64 `json:"id"`
	AutoSelect bool  `json:"autoselect"`
}

// SocialNetworks maps a network name (telegram, vkontakte, youtube,
// instagram) to the organization's connected channels.
type SocialNetworks map[string][]SocialNetwork

const (
	NetworkTelegram  = "telegram"
	NetworkVKontakte = "vkontakte"
	NetworkYouTube   = "youtube"
	NetworkInstagram = "instagram"
)

// Connected reports whether at least one channel of the network exists.
func (s SocialNetworks) Connected(network string) bool { return len(s[network]) > 0 }

// AutoSelected reports whether any channel of the network is preselected.
func (s SocialNetworks) AutoSelected(network string) bool {
	for _, n := range s[network] {
		if n.AutoSelect {
			return true
		}
	}
	return false
}

// DefaultSettings preselects the connected networks marked for auto-selection.
func (s SocialNetworks) DefaultSettings() content.PublishSettings {
	return content.PublishSettings{
		Telegram:  s.AutoSelected(NetworkTelegram),
		VKontakte: s.AutoSelected(NetworkVKontakte),
		YouTube:   s.AutoSelected(NetworkYouTube),
		Instagram: s.AutoSelected(NetworkInstagram),
	}
}

type publicationDTO struct {
	ID               int64     `json:"id"`
	OrganizationID   int64     `json:"organization_id"`
	CategoryID       int64     `json:"category_id"`
	CreatorID        int64     `json:"creator_id"`
	TextReference    string    `json:"text_reference"`
	Name             string    `json:"name"`
	Text             string    `json:"text"`
	Tags             []string  `json:"tags"`
	ImageFID         string    `json:"image_fid"`
	TgSource         bool      `json:"tg_source"`
	VkSource         bool      `json:"vk_source"`
	ModerationStatus string    `json:"moderation_status"`
	CreatedAt        time.Time `json:"created_at"`
}

type videoCutDTO struct {
	ID                    int64     `json:"id"`
	OrganizationID        int64     `json:"organization_id"`
	CreatorID             int64     `json:"creator_id"`
	YouTubeVideoReference string    `json:"youtube_video_reference"`
	Name                  string    `json:"name"`
	Description           string    `json:"description"`
	Tags                  []string  `json:"tags"`
	VideoFID              string    `json:"video_fid"`
	YouTubeSource         bool      `json:"youtube_source"`
	InstagramSource       bool      `json:"inst_source"`
	ModerationStatus      string    `json:"moderation_status"`
	CreatedAt             time.Time `json:"created_at"`
}

type moderatePublicationRequest struct {
	PublicationID     int64  `json:"publication_id"`
	ModeratorID       int64  `json:"moderator_id"`
	ModerationStatus  string `json:"moderation_status"`
	ModerationComment string `json:"moderation_comment,omitempty"`
}

type moderateVideoCutRequest struct {
	VideoCutID        int64  `json:"video_cut_id"`
	ModeratorID       int64  `json:"moderator_id"`
	ModerationStatus  string `json:"moderation_status"`
	ModerationComment string `json:"moderation_comment,omitempty"`
}

type videoCutChange struct {
	Name            *string   `json:"name,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	YouTubeSource   *bool     `json:"youtube_source,omitempty"`
	InstagramSource *bool     `json:"inst_source,omitempty"`
}

type generateTextRequest struct {
	CategoryID    int64  `json:"category_id"`
	TextReference string `json:"text_reference"`
}

type regenerateTextRequest struct {
	CategoryID      int64  `json:"category_id"`
	PublicationText string `json:"publication_text"`
	Prompt          string `json:"prompt,omitempty"`
}

type generateImageRequest struct {
	CategoryID      int64  `json:"category_id"`
	PublicationText string `json:"publication_text"`
	TextReference   string `json:"text_reference"`
	Prompt          string `json:"prompt,omitempty"`
}

type generateVideoCutRequest struct {
	OrganizationID        int64  `json:"organization_id"`
	CreatorID             int64  `json:"creator_id"`
	YouTubeVideoReference string `json:"youtube_video_reference"`
}

// NewPublication is the input of CreatePublication.
type NewPublication struct {
	OrganizationID int64
	CategoryID     int64
	CreatorID      int64
	Reference      string
	Name           string
	Text           string
	Tags           []string
	Status         content.Status
	ImageURL       string
	Image          *content.File
	Settings       content.PublishSettings
}
