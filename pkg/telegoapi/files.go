package telegoapi

import (
	"context"
	"fmt"
	"path"

	"kontur-content-bot/internal/content"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// FileDownloader fetches files users sent to the bot.
type FileDownloader struct {
	bot      BotAPI
	download func(url string) ([]byte, error)
}

// NewFileDownloader creates a downloader that resolves file ids through bot.
func NewFileDownloader(bot BotAPI) *FileDownloader {
	return &FileDownloader{bot: bot, download: tu.DownloadFile}
}

// FetchMedia downloads the file with the given Telegram file id.
func (d *FileDownloader) FetchMedia(ctx context.Context, fileID string) (content.File, error) {
	f, err := d.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return content.File{}, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}
	if f.FilePath == "" {
		return content.File{}, fmt.Errorf("file %s has no download path", fileID)
	}
	data, err := d.download(d.bot.FileDownloadURL(f.FilePath))
	if err != nil {
		return content.File{}, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	return content.File{Name: path.Base(f.FilePath), Data: data}, nil
}
