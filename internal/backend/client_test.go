package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"kontur-content-bot/internal/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const testBaseURL = "http://content.test"

// newTestHTTPClient serves h over an in-memory listener.
func newTestHTTPClient(t *testing.T, h fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
}

type capturedRequest struct {
	method    string
	path      string
	requestID string
	body      []byte
	form      map[string][]string
	files     map[string]string
}

func capture(t *testing.T, status int, response string, into *capturedRequest) *ContentClient {
	t.Helper()
	hc := newTestHTTPClient(t, func(ctx *fasthttp.RequestCtx) {
		into.method = string(ctx.Method())
		into.path = string(ctx.Path())
		into.requestID = string(ctx.Request.Header.Peek("X-Request-ID"))
		into.body = append([]byte(nil), ctx.PostBody()...)
		if form, err := ctx.MultipartForm(); err == nil {
			into.form = form.Value
			into.files = map[string]string{}
			for name, headers := range form.File {
				into.files[name] = headers[0].Filename
			}
		}
		ctx.SetStatusCode(status)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(response)
	})
	return NewContentClient(testBaseURL, WithHTTPClient(hc), WithTimeout(5*time.Second))
}

func TestListItems(t *testing.T) {
	ctx := context.Background()

	t.Run("Publications", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `[
			{"id": 5, "organization_id": 3, "name": "Post", "text": "Body", "tags": ["a"],
			 "image_fid": "fid-1", "tg_source": true, "moderation_status": "moderation",
			 "created_at": "2026-01-02T03:04:05Z"},
			{"id": 6, "organization_id": 3, "name": "Plain", "moderation_status": "draft"}
		]`, &req)

		items, err := c.ListItems(ctx, content.KindPublication, 3)

		require.NoError(t, err)
		assert.Equal(t, "GET", req.method)
		assert.Equal(t, "/publication/organization/3/publications", req.path)
		assert.NotEmpty(t, req.requestID)
		require.Len(t, items, 2)
		assert.Equal(t, content.StatusModeration, items[0].Status)
		assert.Equal(t, testBaseURL+"/publication/5/image/download", items[0].Media.URL())
		assert.True(t, items[0].Settings.Telegram)
		assert.False(t, items[1].Media.Present())
	})

	t.Run("VideoCuts", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `[{"id": 9, "name": "Cut", "description": "Desc", "video_fid": "v",
			"youtube_source": true, "moderation_status": "draft"}]`, &req)

		items, err := c.ListItems(ctx, content.KindVideoCut, 3)

		require.NoError(t, err)
		assert.Equal(t, "/video-cut/organization/3/video-cuts", req.path)
		require.Len(t, items, 1)
		assert.Equal(t, "Desc", items[0].Text)
		assert.Equal(t, testBaseURL+"/video-cut/9/download", items[0].VideoURL)
		assert.True(t, items[0].Settings.YouTube)
	})

	t.Run("NotFound", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 404, `{"detail":"no organization"}`, &req)

		_, err := c.ListItems(ctx, content.KindPublication, 3)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 404, apiErr.Status)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestChangeItem(t *testing.T) {
	ctx := context.Background()

	t.Run("PublicationWithUploadedImage", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, ``, &req)
		name := "New title"
		ch := content.Change{
			Name:        &name,
			Tags:        []string{"x", "y"},
			TagsChanged: true,
			Image:       content.ImageReplace,
			Media:       content.UploadedMedia("AgAD"),
			ImageFile:   &content.File{Name: "photo.jpg", Data: []byte("jpeg")},
		}

		err := c.ChangeItem(ctx, content.ItemRef{Kind: content.KindPublication, ID: 5}, ch)

		require.NoError(t, err)
		assert.Equal(t, "PUT", req.method)
		assert.Equal(t, "/publication/5", req.path)
		assert.Equal(t, []string{"New title"}, req.form["name"])
		assert.Equal(t, []string{`["x","y"]`}, req.form["tags"])
		assert.NotContains(t, req.form, "text")
		assert.NotContains(t, req.form, "image_url")
		assert.Equal(t, "photo.jpg", req.files["image_file"])
	})

	t.Run("PublicationWithGeneratedImage", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, ``, &req)
		ch := content.Change{Image: content.ImageAttach, Media: content.RemoteMedia("https://gen/1.png")}

		err := c.ChangeItem(ctx, content.ItemRef{Kind: content.KindPublication, ID: 5}, ch)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://gen/1.png"}, req.form["image_url"])
		assert.Empty(t, req.files)
	})

	t.Run("VideoCutSendsOnlyChangedFields", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, ``, &req)
		ch := content.Change{Tags: []string{"t"}, TagsChanged: true}

		err := c.ChangeItem(ctx, content.ItemRef{Kind: content.KindVideoCut, ID: 9}, ch)

		require.NoError(t, err)
		assert.Equal(t, "/video-cut/9", req.path)
		var body map[string]any
		require.NoError(t, json.Unmarshal(req.body, &body))
		assert.Equal(t, map[string]any{"tags": []any{"t"}}, body)
	})
}

func TestTransitionItem(t *testing.T) {
	ctx := context.Background()
	ref := content.ItemRef{Kind: content.KindPublication, ID: 5}

	t.Run("Reject", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `{}`, &req)

		err := c.TransitionItem(ctx, ref, content.Transition{Action: content.ActionReject, ActorID: 77, Comment: "fix the tags"})

		require.NoError(t, err)
		assert.Equal(t, "/publication/moderate", req.path)
		var body moderatePublicationRequest
		require.NoError(t, json.Unmarshal(req.body, &body))
		assert.Equal(t, moderatePublicationRequest{
			PublicationID: 5, ModeratorID: 77, ModerationStatus: "rejected", ModerationComment: "fix the tags",
		}, body)
	})

	t.Run("SendToModeration", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, ``, &req)

		err := c.TransitionItem(ctx, content.ItemRef{Kind: content.KindVideoCut, ID: 9}, content.Transition{Action: content.ActionSendToModeration})

		require.NoError(t, err)
		assert.Equal(t, "POST", req.method)
		assert.Equal(t, "/video-cut/9/send-to-moderation", req.path)
	})

	t.Run("Delete", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 204, ``, &req)

		err := c.TransitionItem(ctx, ref, content.Transition{Action: content.ActionDelete})

		require.NoError(t, err)
		assert.Equal(t, "DELETE", req.method)
		assert.Equal(t, "/publication/5", req.path)
	})

	t.Run("ServerError", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 500, `oops`, &req)

		err := c.TransitionItem(ctx, ref, content.Transition{Action: content.ActionApprove, ActorID: 1})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "oops", apiErr.Body)
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("GenerateText", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `{"name":"N","text":"T","tags":["a","b"]}`, &req)

		g, err := c.GenerateText(ctx, 4, "reference text")

		require.NoError(t, err)
		assert.Equal(t, content.Generated{Name: "N", Text: "T", Tags: []string{"a", "b"}}, g)
		assert.JSONEq(t, `{"category_id":4,"text_reference":"reference text"}`, string(req.body))
	})

	t.Run("TranscribeAudio", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `{"text":"hello"}`, &req)

		text, err := c.TranscribeAudio(ctx, 3, content.File{Name: "voice.ogg", Data: []byte("ogg")})

		require.NoError(t, err)
		assert.Equal(t, "hello", text)
		assert.Equal(t, []string{"3"}, req.form["organization_id"])
		assert.Equal(t, "voice.ogg", req.files["audio_file"])
	})

	t.Run("CreatePublication", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `{"publication_id": 101}`, &req)

		id, err := c.CreatePublication(ctx, NewPublication{
			OrganizationID: 3, CategoryID: 4, CreatorID: 5,
			Name: "N", Text: "T", Tags: []string{"a"},
			Status: content.StatusModeration, ImageURL: "https://gen/2.png",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(101), id)
		assert.Equal(t, []string{"moderation"}, req.form["moderation_status"])
		assert.Equal(t, []string{"https://gen/2.png"}, req.form["image_url"])
	})

	t.Run("SocialNetworks", func(t *testing.T) {
		var req capturedRequest
		c := capture(t, 200, `{"telegram":[{"id":1,"autoselect":true}],"vkontakte":[{"id":2}]}`, &req)

		nets, err := c.SocialNetworksByOrganization(ctx, 3)

		require.NoError(t, err)
		assert.True(t, nets.Connected(NetworkVKontakte))
		assert.False(t, nets.Connected(NetworkYouTube))
		assert.Equal(t, content.PublishSettings{Telegram: true}, nets.DefaultSettings())
	})
}

func TestEmployeeByAccountID(t *testing.T) {
	hc := newTestHTTPClient(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "/employee/account/12", string(ctx.Path()))
		ctx.SetBodyString(`{"id":1,"account_id":12,"organization_id":3,"name":"Anna","required_moderation":true}`)
	})
	c := NewEmployeeClient("http://employee.test", WithHTTPClient(hc))

	e, err := c.EmployeeByAccountID(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, int64(3), e.OrganizationID)
	assert.True(t, e.RequiredModeration)
}

func TestCanceledContext(t *testing.T) {
	c := NewContentClient(testBaseURL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListItems(ctx, content.KindPublication, 1)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormJSONError(t *testing.T) {
	var got capturedRequest
	c := capture(t, fasthttp.StatusOK, `{}`, &got)
	form := (&Form{}).Int("id", 1).JSON("settings", make(chan int))

	err := c.doMultipart(context.Background(), fasthttp.MethodPut, "/publication", form, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "field settings")
	assert.Empty(t, got.method)
}
