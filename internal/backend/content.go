package backend

import (
	"context"
	"fmt"

	"kontur-content-bot/internal/content"

	"github.com/valyala/fasthttp"
)

// ContentClient talks to the content service: publications, video cuts,
// categories, social networks and AI generation.
type ContentClient struct {
	*Client
}

// NewContentClient creates a content service client.
func NewContentClient(baseURL string, opts ...Option) *ContentClient {
	return &ContentClient{Client: NewClient("content", baseURL, opts...)}
}

var (
	_ content.Source = (*ContentClient)(nil)
	_ content.Store  = (*ContentClient)(nil)
)

// ListItems returns all items of kind owned by the organization.
func (c *ContentClient) ListItems(ctx context.Context, kind content.Kind, organizationID int64) ([]content.Item, error) {
	switch kind {
	case content.KindPublication:
		var dtos []publicationDTO
		if err := c.getJSON(ctx, fmt.Sprintf("/publication/organization/%d/publications", organizationID), &dtos); err != nil {
			return nil, err
		}
		items := make([]content.Item, 0, len(dtos))
		for _, d := range dtos {
			items = append(items, c.publicationItem(d))
		}
		return items, nil
	case content.KindVideoCut:
		var dtos []videoCutDTO
		if err := c.getJSON(ctx, fmt.Sprintf("/video-cut/organization/%d/video-cuts", organizationID), &dtos); err != nil {
			return nil, err
		}
		items := make([]content.Item, 0, len(dtos))
		for _, d := range dtos {
			items = append(items, c.videoCutItem(d))
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unsupported item kind %q", kind)
	}
}

// PublicationImageURL is where the stored image of a publication is served.
func (c *ContentClient) PublicationImageURL(id int64) string {
	return c.URL(fmt.Sprintf("/publication/%d/image/download", id))
}

// VideoCutURL is where the rendered video of a cut is served.
func (c *ContentClient) VideoCutURL(id int64) string {
	return c.URL(fmt.Sprintf("/video-cut/%d/download", id))
}

func (c *ContentClient) publicationItem(d publicationDTO) content.Item {
	it := content.Item{
		ID:             d.ID,
		Kind:           content.KindPublication,
		OrganizationID: d.OrganizationID,
		CreatorID:      d.CreatorID,
		CategoryID:     d.CategoryID,
		Status:         content.Status(d.ModerationStatus),
		Reference:      d.TextReference,
		CreatedAt:      d.CreatedAt,
		Name:           d.Name,
		Text:           d.Text,
		Tags:           d.Tags,
		Settings:       content.PublishSettings{Telegram: d.TgSource, VKontakte: d.VkSource},
	}
	if d.ImageFID != "" {
		it.Media = content.RemoteMedia(c.PublicationImageURL(d.ID))
	}
	return it
}

func (c *ContentClient) videoCutItem(d videoCutDTO) content.Item {
	it := content.Item{
		ID:             d.ID,
		Kind:           content.KindVideoCut,
		OrganizationID: d.OrganizationID,
		CreatorID:      d.CreatorID,
		Status:         content.Status(d.ModerationStatus),
		Reference:      d.YouTubeVideoReference,
		CreatedAt:      d.CreatedAt,
		Name:           d.Name,
		Text:           d.Description,
		Tags:           d.Tags,
		Settings:       content.PublishSettings{YouTube: d.YouTubeSource, Instagram: d.InstagramSource},
	}
	if d.VideoFID != "" {
		it.VideoURL = c.VideoCutURL(d.ID)
	}
	return it
}

// ChangeItem sends the changed fields of an item. Publications are updated
// with a multipart form so that an uploaded image can travel with the text.
func (c *ContentClient) ChangeItem(ctx context.Context, ref content.ItemRef, ch content.Change) error {
	switch ref.Kind {
	case content.KindPublication:
		form := &Form{}
		if ch.Name != nil {
			form.Field("name", *ch.Name)
		}
		if ch.Text != nil {
			form.Field("text", *ch.Text)
		}
		if ch.TagsChanged {
			form.JSON("tags", ch.Tags)
		}
		if ch.Settings != nil {
			form.Bool("tg_source", ch.Settings.Telegram)
			form.Bool("vk_source", ch.Settings.VKontakte)
		}
		if ch.Image == content.ImageAttach || ch.Image == content.ImageReplace {
			switch {
			case ch.ImageFile != nil:
				form.File("image_file", ch.ImageFile.Name, ch.ImageFile.Data)
			case ch.Media.URL() != "":
				form.Field("image_url", ch.Media.URL())
			}
		}
		return c.doMultipart(ctx, fasthttp.MethodPut, fmt.Sprintf("/publication/%d", ref.ID), form, nil)
	case content.KindVideoCut:
		body := videoCutChange{Name: ch.Name, Description: ch.Text}
		if ch.TagsChanged {
			tags := ch.Tags
			body.Tags = &tags
		}
		if ch.Settings != nil {
			yt, inst := ch.Settings.YouTube, ch.Settings.Instagram
			body.YouTubeSource, body.InstagramSource = &yt, &inst
		}
		return c.doJSON(ctx, fasthttp.MethodPut, fmt.Sprintf("/video-cut/%d", ref.ID), body, nil)
	default:
		return fmt.Errorf("unsupported item kind %q", ref.Kind)
	}
}

// DeleteItemImage removes the stored image of a publication.
func (c *ContentClient) DeleteItemImage(ctx context.Context, ref content.ItemRef) error {
	if ref.Kind != content.KindPublication {
		return fmt.Errorf("%s items have no image", ref.Kind)
	}
	return c.doJSON(ctx, fasthttp.MethodDelete, fmt.Sprintf("/publication/%d/image", ref.ID), nil, nil)
}

// TransitionItem moderates, sends to moderation, publishes or deletes an item.
func (c *ContentClient) TransitionItem(ctx context.Context, ref content.ItemRef, t content.Transition) error {
	prefix := "/publication"
	if ref.Kind == content.KindVideoCut {
		prefix = "/video-cut"
	}
	switch t.Action {
	case content.ActionApprove, content.ActionPublish:
		return c.moderate(ctx, ref, t.ActorID, content.StatusApproved, "")
	case content.ActionReject:
		return c.moderate(ctx, ref, t.ActorID, content.StatusRejected, t.Comment)
	case content.ActionSendToModeration:
		return c.doJSON(ctx, fasthttp.MethodPost, fmt.Sprintf("%s/%d/send-to-moderation", prefix, ref.ID), nil, nil)
	case content.ActionDelete:
		return c.doJSON(ctx, fasthttp.MethodDelete, fmt.Sprintf("%s/%d", prefix, ref.ID), nil, nil)
	default:
		return fmt.Errorf("unsupported action %q", t.Action)
	}
}

func (c *ContentClient) moderate(ctx context.Context, ref content.ItemRef, moderatorID int64, status content.Status, comment string) error {
	if ref.Kind == content.KindVideoCut {
		return c.doJSON(ctx, fasthttp.MethodPost, "/video-cut/moderate", moderateVideoCutRequest{
			VideoCutID:        ref.ID,
			ModeratorID:       moderatorID,
			ModerationStatus:  string(status),
			ModerationComment: comment,
		}, nil)
	}
	return c.doJSON(ctx, fasthttp.MethodPost, "/publication/moderate", moderatePublicationRequest{
		PublicationID:     ref.ID,
		ModeratorID:       moderatorID,
		ModerationStatus:  string(status),
		ModerationComment: comment,
	}, nil)
}

// CategoryByID returns one publication category.
func (c *ContentClient) CategoryByID(ctx context.Context, id int64) (content.Category, error) {
	var cat content.Category
	err := c.getJSON(ctx, fmt.Sprintf("/publication/category/%d", id), &cat)
	return cat, err
}

// CategoriesByOrganization lists the organization's categories.
func (c *ContentClient) CategoriesByOrganization(ctx context.Context, organizationID int64) ([]content.Category, error) {
	var cats []content.Category
	err := c.getJSON(ctx, fmt.Sprintf("/publication/organization/%d/categories", organizationID), &cats)
	return cats, err
}

// SocialNetworksByOrganization lists the connected channels of the organization.
func (c *ContentClient) SocialNetworksByOrganization(ctx context.Context, organizationID int64) (SocialNetworks, error) {
	nets := SocialNetworks{}
	err := c.getJSON(ctx, fmt.Sprintf("/social-network/organization/%d", organizationID), &nets)
	return nets, err
}

// GenerateText creates name, text and tags from reference text.
func (c *ContentClient) GenerateText(ctx context.Context, categoryID int64, reference string) (content.Generated, error) {
	var g content.Generated
	err := c.doJSON(ctx, fasthttp.MethodPost, "/publication/text/generate",
		generateTextRequest{CategoryID: categoryID, TextReference: reference}, &g)
	return g, err
}

// RegenerateText rewrites text, optionally following prompt.
func (c *ContentClient) RegenerateText(ctx context.Context, categoryID int64, text, prompt string) (content.Generated, error) {
	var g content.Generated
	err := c.doJSON(ctx, fasthttp.MethodPost, "/publication/text/regenerate",
		regenerateTextRequest{CategoryID: categoryID, PublicationText: text, Prompt: prompt}, &g)
	return g, err
}

// GenerateImage returns the URL of a new image for text.
func (c *ContentClient) GenerateImage(ctx context.Context, categoryID int64, text, reference, prompt string) (string, error) {
	var out struct {
		ImageURL string `json:"image_url"`
	}
	err := c.doJSON(ctx, fasthttp.MethodPost, "/publication/image/generate", generateImageRequest{
		CategoryID:      categoryID,
		PublicationText: text,
		TextReference:   reference,
		Prompt:          prompt,
	}, &out)
	return out.ImageURL, err
}

// TranscribeAudio turns a voice message into text.
func (c *ContentClient) TranscribeAudio(ctx context.Context, organizationID int64, audio content.File) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	form := (&Form{}).Int("organization_id", organizationID).File("audio_file", audio.Name, audio.Data)
	err := c.doMultipart(ctx, fasthttp.MethodPost, "/publication/audio/transcribe", form, &out)
	return out.Text, err
}

// CreatePublication stores a generated publication and returns its id.
func (c *ContentClient) CreatePublication(ctx context.Context, p NewPublication) (int64, error) {
	form := (&Form{}).
		Int("organization_id", p.OrganizationID).
		Int("category_id", p.CategoryID).
		Int("creator_id", p.CreatorID).
		Field("text_reference", p.Reference).
		Field("name", p.Name).
		Field("text", p.Text).
		JSON("tags", p.Tags).
		Field("moderation_status", string(p.Status)).
		Bool("tg_source", p.Settings.Telegram).
		Bool("vk_source", p.Settings.VKontakte)
	switch {
	case p.Image != nil:
		form.File("image_file", p.Image.Name, p.Image.Data)
	case p.ImageURL != "":
		form.Field("image_url", p.ImageURL)
	}
	var out struct {
		PublicationID int64 `json:"publication_id"`
	}
	if err := c.doMultipart(ctx, fasthttp.MethodPost, "/publication", form, &out); err != nil {
		return 0, err
	}
	return out.PublicationID, nil
}

// GenerateVideoCut asks the backend to cut the YouTube video at link.
func (c *ContentClient) GenerateVideoCut(ctx context.Context, organizationID, creatorID int64, link string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/video-cut/generate", generateVideoCutRequest{
		OrganizationID:        organizationID,
		CreatorID:             creatorID,
		YouTubeVideoReference: link,
	}, nil)
}
