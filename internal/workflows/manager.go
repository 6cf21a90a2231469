// Package workflows drives the conversations of the bot: browsing and
// editing publications and video cuts, generating new publications and
// requesting video cuts.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"kontur-content-bot/internal/auth"
	"kontur-content-bot/internal/backend"
	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/database"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"
	telegoapi "kontur-content-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// Gateway is the part of the content backend the workflows use.
type Gateway interface {
	content.Source
	content.Store
	CategoryByID(ctx context.Context, id int64) (content.Category, error)
	CategoriesByOrganization(ctx context.Context, organizationID int64) ([]content.Category, error)
	SocialNetworksByOrganization(ctx context.Context, organizationID int64) (backend.SocialNetworks, error)
	GenerateText(ctx context.Context, categoryID int64, reference string) (content.Generated, error)
	RegenerateText(ctx context.Context, categoryID int64, text, prompt string) (content.Generated, error)
	GenerateImage(ctx context.Context, categoryID int64, text, reference, prompt string) (string, error)
	TranscribeAudio(ctx context.Context, organizationID int64, audio content.File) (string, error)
	CreatePublication(ctx context.Context, p backend.NewPublication) (int64, error)
	GenerateVideoCut(ctx context.Context, organizationID, creatorID int64, link string) error
}

// Deps holds the dependencies required by the Manager.
type Deps struct {
	Bot        telegoapi.BotAPI
	Gateway    Gateway
	Media      content.MediaFetcher
	Sessions   session.Store
	Identities auth.IdentityResolver
	Audit      database.AuditLogger
	Options    content.Options
	Debug      bool
}

// Manager runs the workflows of all chats. Updates of one chat are
// processed one at a time.
type Manager struct {
	bot        telegoapi.BotAPI
	gateway    Gateway
	media      content.MediaFetcher
	committer  *content.Committer
	sessions   session.Store
	identities auth.IdentityResolver
	audit      database.AuditLogger
	options    content.Options
	debug      bool

	locksMu   sync.Mutex
	chatLocks map[int64]*chatLock
	now       func() time.Time
}

// NewManager creates a new workflow manager.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("bot API cannot be nil")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("content gateway cannot be nil")
	}
	if deps.Media == nil {
		return nil, fmt.Errorf("media fetcher cannot be nil")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	if deps.Identities == nil {
		return nil, fmt.Errorf("identity resolver cannot be nil")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("audit logger cannot be nil")
	}
	return &Manager{
		bot:        deps.Bot,
		gateway:    deps.Gateway,
		media:      deps.Media,
		committer:  content.NewCommitter(deps.Gateway, deps.Media),
		sessions:   deps.Sessions,
		identities: deps.Identities,
		audit:      deps.Audit,
		options:    deps.Options,
		debug:      deps.Debug,
		chatLocks:  make(map[int64]*chatLock),
		now:        time.Now,
	}, nil
}

// turn is one update being processed for a chat.
type turn struct {
	chatID   int64
	user     telego.User
	queryID  string
	answered bool
	loc      *i18n.Localizer
	sess     *session.Session
	// discard skips saving the session, for updates that did not touch it.
	discard bool
}

func (t *turn) logPrefix() string {
	return fmt.Sprintf("[Workflow Chat:%d Flow:%s State:%s]", t.chatID, t.sess.Flow, t.sess.State)
}

// chatLock serializes the updates of one chat. The entry is dropped once no
// update holds or waits for it.
type chatLock struct {
	mu   sync.Mutex
	refs int
}

func (m *Manager) lockChat(chatID int64) func() {
	m.locksMu.Lock()
	l, ok := m.chatLocks[chatID]
	if !ok {
		l = &chatLock{}
		m.chatLocks[chatID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.chatLocks, chatID)
		}
		m.locksMu.Unlock()
	}
}

// withSession loads the chat's session, runs fn and saves the session.
func (m *Manager) withSession(ctx context.Context, chatID int64, user telego.User, queryID string, fn func(t *turn) error) error {
	unlock := m.lockChat(chatID)
	defer unlock()

	sess, err := m.sessions.Load(ctx, chatID)
	if errors.Is(err, session.ErrNotFound) {
		sess = session.New(chatID, user.ID)
	} else if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if user.LanguageCode != "" {
		sess.Language = user.LanguageCode
	}

	t := &turn{
		chatID:  chatID,
		user:    user,
		queryID: queryID,
		loc:     locales.NewLocalizer(sess.Language),
		sess:    sess,
	}
	fnErr := fn(t)

	if t.queryID != "" && !t.answered {
		if err := m.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: t.queryID}); err != nil {
			log.Printf("%s Error answering callback query %s: %v", t.logPrefix(), t.queryID, err)
		}
	}
	if t.discard {
		return fnErr
	}
	if err := m.sessions.Save(ctx, sess); err != nil {
		return errors.Join(fnErr, fmt.Errorf("failed to save session: %w", err))
	}
	return fnErr
}

// identify refreshes the identity fields of the session. It reports false
// after telling the user to link the chat when it is not linked.
func (m *Manager) identify(ctx context.Context, t *turn) (bool, error) {
	id, err := m.identities.Resolve(ctx, t.chatID)
	if errors.Is(err, auth.ErrNotLinked) {
		m.send(ctx, t, locales.GetMessage(t.loc, "MsgNotLinked", nil, nil))
		return false, nil
	}
	if err != nil {
		return false, m.fail(ctx, t, fmt.Errorf("failed to resolve identity: %w", err))
	}
	t.sess.AccountID = id.AccountID
	t.sess.OrganizationID = id.OrganizationID
	t.sess.EmployeeID = id.Employee.ID
	t.sess.RequiredModeration = id.Employee.RequiredModeration
	return true, nil
}

// send sends a plain text message to the chat of t.
func (m *Manager) send(ctx context.Context, t *turn, text string) {
	if _, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(t.chatID), text)); err != nil {
		log.Printf("%s Error sending message: %v", t.logPrefix(), err)
	}
}

// notify answers the pending callback query with text, or sends it as a
// message when the update was not a callback.
func (m *Manager) notify(ctx context.Context, t *turn, text string, alert bool) {
	if t.queryID != "" && !t.answered {
		t.answered = true
		err := m.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: t.queryID,
			Text:            text,
			ShowAlert:       alert,
		})
		if err == nil {
			return
		}
		log.Printf("%s Error answering callback query %s: %v", t.logPrefix(), t.queryID, err)
	}
	m.send(ctx, t, text)
}

// notifyID is notify for a message ID without template data.
func (m *Manager) notifyID(ctx context.Context, t *turn, msgID string, alert bool) {
	m.notify(ctx, t, locales.GetMessage(t.loc, msgID, nil, nil), alert)
}

// fail reports a backend or transport failure to the user and returns err
// for logging at the bot boundary. The session state is left as is.
func (m *Manager) fail(ctx context.Context, t *turn, err error) error {
	log.Printf("%s %v", t.logPrefix(), err)
	msgID := "MsgBackendError"
	if errors.Is(err, backend.ErrNotFound) {
		msgID = "MsgItemGone"
	}
	m.notifyID(ctx, t, msgID, true)
	return err
}

// fire applies event to the session state using the flow's machine.
func (m *Manager) fire(t *turn, event content.Event) error {
	f, ok := flows[t.sess.Flow]
	if !ok {
		return fmt.Errorf("no machine for flow %q", t.sess.Flow)
	}
	next, err := f.machine.Fire(t.sess.State, event)
	if err != nil {
		return err
	}
	if m.debug {
		log.Printf("%s %s -> %s", t.logPrefix(), event, next)
	}
	t.sess.State = next
	return nil
}

// can reports whether event is allowed in the current state.
func (t *turn) can(event content.Event) bool {
	f, ok := flows[t.sess.Flow]
	return ok && f.machine.Can(t.sess.State, event)
}

// Cancel leaves any workflow of the chat.
func (m *Manager) Cancel(ctx context.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	return m.withSession(ctx, message.Chat.ID, *message.From, "", func(t *turn) error {
		wasActive := t.sess.Active()
		m.clearCard(ctx, t)
		t.sess.Reset()
		if wasActive {
			m.send(ctx, t, locales.GetMessage(t.loc, "MsgCancelled", nil, nil))
		} else {
			m.send(ctx, t, locales.GetMessage(t.loc, "MsgNothingToCancel", nil, nil))
		}
		return nil
	})
}

// Forget drops the session of the chat, used when the chat is unlinked.
func (m *Manager) Forget(ctx context.Context, chatID int64) error {
	unlock := m.lockChat(chatID)
	defer unlock()
	if err := m.sessions.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete session of chat %d: %w", chatID, err)
	}
	return nil
}
