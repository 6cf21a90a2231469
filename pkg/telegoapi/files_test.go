package telegoapi

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBot struct {
	BotAPI
	mock.Mock
}

func (m *mockBot) GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error) {
	args := m.Called(ctx, params)
	if f, ok := args.Get(0).(*telego.File); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBot) FileDownloadURL(filepath string) string {
	return "https://files.test/" + filepath
}

func TestFileDownloader(t *testing.T) {
	ctx := context.Background()

	t.Run("DownloadsByFilePath", func(t *testing.T) {
		// Arrange
		bot := &mockBot{}
		bot.On("GetFile", ctx, &telego.GetFileParams{FileID: "f1"}).Return(&telego.File{FilePath: "photos/file_1.jpg"}, nil)
		d := NewFileDownloader(bot)
		var requested string
		d.download = func(url string) ([]byte, error) {
			requested = url
			return []byte("jpeg"), nil
		}

		// Act
		f, err := d.FetchMedia(ctx, "f1")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "https://files.test/photos/file_1.jpg", requested)
		assert.Equal(t, "file_1.jpg", f.Name)
		assert.Equal(t, []byte("jpeg"), f.Data)
		bot.AssertExpectations(t)
	})

	t.Run("GetFileError", func(t *testing.T) {
		bot := &mockBot{}
		bot.On("GetFile", ctx, mock.Anything).Return(nil, errors.New("bad request"))
		d := NewFileDownloader(bot)

		_, err := d.FetchMedia(ctx, "f1")

		assert.ErrorContains(t, err, "failed to get file f1")
	})

	t.Run("MissingPath", func(t *testing.T) {
		bot := &mockBot{}
		bot.On("GetFile", ctx, mock.Anything).Return(&telego.File{}, nil)
		d := NewFileDownloader(bot)

		_, err := d.FetchMedia(ctx, "f1")

		assert.ErrorContains(t, err, "no download path")
	})

	t.Run("DownloadError", func(t *testing.T) {
		bot := &mockBot{}
		bot.On("GetFile", ctx, mock.Anything).Return(&telego.File{FilePath: "voice/a.oga"}, nil)
		d := NewFileDownloader(bot)
		d.download = func(string) ([]byte, error) { return nil, errors.New("timeout") }

		_, err := d.FetchMedia(ctx, "f1")

		assert.ErrorContains(t, err, "failed to download file f1")
	})
}
