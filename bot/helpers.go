package bot

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	telegoapi "kontur-content-bot/pkg/telegoapi"

	sentry "github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
)

const defaultRetryWait = 2 * time.Second

var (
	retryAfterRe  = regexp.MustCompile(`(?i)retry after (\d+)`)
	rateLimitedRe = regexp.MustCompile(`\b429\b|Too Many Requests`)
)

// RetryingBot retries the sends that Telegram rejects with 429 Too Many
// Requests, waiting as long as the error asks. Other calls pass through.
type RetryingBot struct {
	telegoapi.BotAPI
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetryingBot wraps api. maxRetries counts the attempts after the first.
func NewRetryingBot(api telegoapi.BotAPI, maxRetries int) *RetryingBot {
	return &RetryingBot{BotAPI: api, maxRetries: maxRetries, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *RetryingBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	return withRetry(ctx, r, "sendMessage", func() (*telego.Message, error) { return r.BotAPI.SendMessage(ctx, params) })
}

func (r *RetryingBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	return withRetry(ctx, r, "sendPhoto", func() (*telego.Message, error) { return r.BotAPI.SendPhoto(ctx, params) })
}

func (r *RetryingBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	return withRetry(ctx, r, "editMessageText", func() (*telego.Message, error) { return r.BotAPI.EditMessageText(ctx, params) })
}

func withRetry[T any](ctx context.Context, r *RetryingBot, method string, call func() (T, error)) (T, error) {
	logPrefix := fmt.Sprintf("[SendRetry %s]", method)
	for attempt := 0; ; attempt++ {
		res, err := call()
		if err == nil {
			if attempt > 0 {
				log.Printf("%s Succeeded after %d attempt(s)", logPrefix, attempt+1)
			}
			return res, nil
		}
		wait, limited := parseRetryAfter(err.Error())
		if !limited || attempt >= r.maxRetries {
			if limited {
				err = fmt.Errorf("%s max retries (%d) exceeded: %w", logPrefix, r.maxRetries, err)
				sentry.CaptureException(err)
			}
			return res, err
		}
		log.Printf("%s Rate limit hit (attempt %d/%d), waiting %v", logPrefix, attempt+1, r.maxRetries+1, wait)
		if err := r.sleep(ctx, wait); err != nil {
			var zero T
			return zero, fmt.Errorf("%s context cancelled during rate limit wait: %w", logPrefix, err)
		}
	}
}

// parseRetryAfter reports whether the error is a rate limit and how long
// to wait before the next attempt.
func parseRetryAfter(errorString string) (time.Duration, bool) {
	if m := retryAfterRe.FindStringSubmatch(errorString); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	if rateLimitedRe.MatchString(errorString) {
		return defaultRetryWait, true
	}
	return 0, false
}
