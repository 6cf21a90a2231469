package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"kontur-content-bot/internal/auth"
	"kontur-content-bot/internal/backend"
	"kontur-content-bot/internal/locales"
	"kontur-content-bot/internal/session"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockBot is a mock implementing the telegoapi.BotAPI interface
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*telego.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error) {
	args := m.Called(ctx, params)
	if f, ok := args.Get(0).(*telego.File); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) FileDownloadURL(filepath string) string {
	return m.Called(filepath).String(0)
}

// MockUserActionLogger is a mock for UserActionLogger
type MockUserActionLogger struct {
	mock.Mock
}

func (m *MockUserActionLogger) LogUserAction(userID int64, action string, details interface{}) error {
	args := m.Called(userID, action, details)
	return args.Error(0)
}

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, userID int64, username, firstName, lastName string, action string) error {
	args := m.Called(ctx, userID, username, firstName, lastName, action)
	return args.Error(0)
}

// MockIdentities is a mock implementing auth.IdentityResolver
type MockIdentities struct {
	mock.Mock
}

func (m *MockIdentities) Resolve(ctx context.Context, chatID int64) (*auth.Identity, error) {
	args := m.Called(ctx, chatID)
	if id, ok := args.Get(0).(*auth.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentities) Link(ctx context.Context, chatID, accountID int64, languageCode string) (*auth.Identity, error) {
	args := m.Called(ctx, chatID, accountID, languageCode)
	if id, ok := args.Get(0).(*auth.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentities) Unlink(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// MockWorkflows is a mock implementing WorkflowManager
type MockWorkflows struct {
	mock.Mock
}

func (m *MockWorkflows) StartBrowsing(ctx context.Context, message telego.Message, fl session.Flow) error {
	return m.Called(ctx, message, fl).Error(0)
}

func (m *MockWorkflows) StartGenerate(ctx context.Context, message telego.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockWorkflows) StartVideoCut(ctx context.Context, message telego.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockWorkflows) Cancel(ctx context.Context, message telego.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockWorkflows) Forget(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *MockWorkflows) HandleMessage(ctx context.Context, message telego.Message) (bool, error) {
	args := m.Called(ctx, message)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflows) HandleCallbackQuery(ctx context.Context, query telego.CallbackQuery) (bool, error) {
	args := m.Called(ctx, query)
	return args.Bool(0), args.Error(1)
}

// --- Test Suite Setup ---

const testVersion = "v1.2.3-test"

type testHandlerSuite struct {
	mockBot          *MockBot
	mockActionLogger *MockUserActionLogger
	mockUserRepo     *MockUserRepository
	mockIdentities   *MockIdentities
	mockWorkflows    *MockWorkflows
	handler          *MessageHandler
}

// setupTestHandlerSuite creates a new suite with fresh mocks and handler instance.
func setupTestHandlerSuite(t *testing.T) *testHandlerSuite {
	t.Helper()
	require.NoError(t, locales.Init("en"))

	s := &testHandlerSuite{
		mockBot:          new(MockBot),
		mockActionLogger: new(MockUserActionLogger),
		mockUserRepo:     new(MockUserRepository),
		mockIdentities:   new(MockIdentities),
		mockWorkflows:    new(MockWorkflows),
	}
	handler, err := NewMessageHandler(testVersion, s.mockActionLogger, s.mockUserRepo, s.mockIdentities, s.mockWorkflows)
	require.NoError(t, err)
	s.handler = handler
	return s
}

// expectActivity sets up the user update and action log of one recorded action.
func (s *testHandlerSuite) expectActivity(ctx context.Context, message telego.Message, action string) {
	u := message.From
	s.mockUserRepo.On("UpdateUser", ctx, u.ID, u.Username, u.FirstName, u.LastName, action).Return(nil).Once()
	s.mockActionLogger.On("LogUserAction", u.ID, action, mock.Anything).Return(nil).Once()
}

// captureSend expects one SendMessage call and returns a pointer to its params.
func (s *testHandlerSuite) captureSend(ctx context.Context) **telego.SendMessageParams {
	var captured *telego.SendMessageParams
	s.mockBot.On("SendMessage", ctx, mock.AnythingOfType("*telego.SendMessageParams")).
		Run(func(args mock.Arguments) {
			if params, ok := args.Get(1).(*telego.SendMessageParams); ok {
				captured = params
			}
		}).
		Return(&telego.Message{}, nil).Once()
	return &captured
}

func (s *testHandlerSuite) assertAll(t *testing.T) {
	s.mockBot.AssertExpectations(t)
	s.mockActionLogger.AssertExpectations(t)
	s.mockUserRepo.AssertExpectations(t)
	s.mockIdentities.AssertExpectations(t)
	s.mockWorkflows.AssertExpectations(t)
}

func newTestMessage(chatID int64, text string) telego.Message {
	return telego.Message{
		MessageID: 100,
		From: &telego.User{
			ID:           chatID,
			Username:     "anna",
			FirstName:    "Anna",
			LastName:     "Petrova",
			LanguageCode: "en",
		},
		Chat: telego.Chat{ID: chatID},
		Date: time.Now().Unix(),
		Text: text,
	}
}

func testIdentity(chatID int64) *auth.Identity {
	return &auth.Identity{
		ChatID:         chatID,
		AccountID:      7,
		OrganizationID: 3,
		Employee:       backend.Employee{ID: 11, AccountID: 7, OrganizationID: 3, Name: "Anna Petrova"},
	}
}

// --- Tests ---

func TestNewMessageHandler(t *testing.T) {
	require.NoError(t, locales.Init("en"))

	t.Run("RejectsMissingDependencies", func(t *testing.T) {
		_, err := NewMessageHandler(testVersion, nil, new(MockUserRepository), new(MockIdentities), new(MockWorkflows))
		assert.Error(t, err)
		_, err = NewMessageHandler(testVersion, new(MockUserActionLogger), new(MockUserRepository), nil, new(MockWorkflows))
		assert.Error(t, err)
		_, err = NewMessageHandler(testVersion, new(MockUserActionLogger), new(MockUserRepository), new(MockIdentities), nil)
		assert.Error(t, err)
	})

	t.Run("RegistersCommands", func(t *testing.T) {
		h, err := NewMessageHandler("", new(MockUserActionLogger), new(MockUserRepository), new(MockIdentities), new(MockWorkflows))
		require.NoError(t, err)
		assert.Equal(t, "dev", h.version)
		for _, name := range []string{"start", "moderation", "drafts", "videos", "generate", "cut", "cancel", "help", "version", "unlink"} {
			assert.NotNil(t, h.GetCommandHandler(name), name)
		}
		assert.Nil(t, h.GetCommandHandler("suggest"))
	})
}

func TestHandleStart(t *testing.T) {
	ctx := context.Background()
	const chatID = int64(54321)
	en := func(id string, data map[string]interface{}) string {
		return locales.GetMessage(locales.NewLocalizer("en"), id, data, nil)
	}

	t.Run("LinkedGreeting", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/start")
		s.mockBot.On("SetMyCommands", ctx, mock.AnythingOfType("*telego.SetMyCommandsParams")).Return(nil).Once()
		s.expectActivity(ctx, message, ActionCommandStart)
		s.mockIdentities.On("Resolve", ctx, chatID).Return(testIdentity(chatID), nil).Once()
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleStart(ctx, s.mockBot, message)

		// Assert
		assert.NoError(t, err)
		s.assertAll(t)
		require.NotNil(t, *sent)
		assert.Equal(t, telegoutil.ID(chatID), (*sent).ChatID)
		assert.Equal(t, en("MsgStart", map[string]interface{}{"Name": "Anna Petrova"}), (*sent).Text)
	})

	t.Run("NotLinkedExplainsLinking", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/start")
		s.mockBot.On("SetMyCommands", ctx, mock.Anything).Return(nil).Once()
		s.expectActivity(ctx, message, ActionCommandStart)
		s.mockIdentities.On("Resolve", ctx, chatID).Return(nil, auth.ErrNotLinked).Once()
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleStart(ctx, s.mockBot, message)

		// Assert
		assert.NoError(t, err)
		s.assertAll(t)
		assert.Equal(t, en("MsgLinkUsage", nil), (*sent).Text)
	})

	t.Run("LinksAccount", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/start 7")
		s.mockBot.On("SetMyCommands", ctx, mock.Anything).Return(nil).Once()
		s.mockIdentities.On("Link", ctx, chatID, int64(7), "en").Return(testIdentity(chatID), nil).Once()
		s.expectActivity(ctx, message, ActionLinkAccount)
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleStart(ctx, s.mockBot, message)

		// Assert
		assert.NoError(t, err)
		s.assertAll(t)
		assert.Equal(t, en("MsgLinked", map[string]interface{}{"Name": "Anna Petrova"}), (*sent).Text)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/start 99")
		s.mockBot.On("SetMyCommands", ctx, mock.Anything).Return(nil).Once()
		s.mockIdentities.On("Link", ctx, chatID, int64(99), "en").Return(nil, fmt.Errorf("lookup: %w", auth.ErrNotLinked)).Once()
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleStart(ctx, s.mockBot, message)

		// Assert
		assert.NoError(t, err)
		s.assertAll(t)
		assert.Equal(t, en("MsgLinkFailed", nil), (*sent).Text)
	})

	t.Run("MalformedAccountID", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/start abc")
		s.mockBot.On("SetMyCommands", ctx, mock.Anything).Return(nil).Once()
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleStart(ctx, s.mockBot, message)

		// Assert
		assert.NoError(t, err)
		s.assertAll(t)
		assert.Equal(t, en("MsgLinkUsage", nil), (*sent).Text)
	})

	t.Run("BackendFailure", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/start 7")
		backendErr := errors.New("employee service unavailable")
		s.mockBot.On("SetMyCommands", ctx, mock.Anything).Return(errors.New("flood")).Once()
		s.mockIdentities.On("Link", ctx, chatID, int64(7), "en").Return(nil, backendErr).Once()
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleStart(ctx, s.mockBot, message)

		// Assert
		assert.ErrorIs(t, err, backendErr)
		s.assertAll(t)
		assert.Equal(t, en("MsgErrorGeneral", nil), (*sent).Text)
	})
}

func TestHandleHelp(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := setupTestHandlerSuite(t)
	message := newTestMessage(22222, "/help")
	s.expectActivity(ctx, message, ActionCommandHelp)
	sent := s.captureSend(ctx)

	localizer := locales.NewLocalizer("en")
	var expected strings.Builder
	expected.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil) + "\n")
	for _, cmd := range s.handler.commands {
		expected.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, locales.GetMessage(localizer, cmd.Description, nil, nil)))
	}
	expected.WriteString(locales.GetMessage(localizer, "MsgHelpFooter", nil, nil))

	// Act
	err := s.handler.HandleHelp(ctx, s.mockBot, message)

	// Assert
	assert.NoError(t, err)
	s.assertAll(t)
	assert.Equal(t, expected.String(), (*sent).Text)
	assert.Contains(t, (*sent).Text, "/moderation - ")
}

func TestHandleVersion(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := setupTestHandlerSuite(t)
	message := newTestMessage(33333, "/version")
	s.expectActivity(ctx, message, ActionCommandVersion)
	sent := s.captureSend(ctx)

	// Act
	err := s.handler.HandleVersion(ctx, s.mockBot, message)

	// Assert
	assert.NoError(t, err)
	s.assertAll(t)
	assert.Contains(t, (*sent).Text, testVersion)
}

func TestWorkflowCommands(t *testing.T) {
	ctx := context.Background()

	browsing := []struct {
		command string
		action  string
		flow    session.Flow
	}{
		{"moderation", ActionCommandModeration, session.FlowModeration},
		{"drafts", ActionCommandDrafts, session.FlowDrafts},
		{"videos", ActionCommandVideos, session.FlowVideoCuts},
	}
	for _, tc := range browsing {
		t.Run(tc.command, func(t *testing.T) {
			// Arrange
			s := setupTestHandlerSuite(t)
			message := newTestMessage(44444, "/"+tc.command)
			s.expectActivity(ctx, message, tc.action)
			s.mockWorkflows.On("StartBrowsing", ctx, message, tc.flow).Return(nil).Once()

			// Act
			err := s.handler.GetCommandHandler(tc.command)(ctx, s.mockBot, message)

			// Assert
			assert.NoError(t, err)
			s.assertAll(t)
		})
	}

	t.Run("Generate", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		message := newTestMessage(44444, "/generate")
		s.expectActivity(ctx, message, ActionCommandGenerate)
		s.mockWorkflows.On("StartGenerate", ctx, message).Return(nil).Once()

		assert.NoError(t, s.handler.HandleGenerate(ctx, s.mockBot, message))
		s.assertAll(t)
	})

	t.Run("CutPropagatesError", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		message := newTestMessage(44444, "/cut")
		wfErr := errors.New("session store down")
		s.expectActivity(ctx, message, ActionCommandCut)
		s.mockWorkflows.On("StartVideoCut", ctx, message).Return(wfErr).Once()

		assert.ErrorIs(t, s.handler.HandleCut(ctx, s.mockBot, message), wfErr)
		s.assertAll(t)
	})

	t.Run("Cancel", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		message := newTestMessage(44444, "/cancel")
		s.expectActivity(ctx, message, ActionCommandCancel)
		s.mockWorkflows.On("Cancel", ctx, message).Return(nil).Once()

		assert.NoError(t, s.handler.HandleCancel(ctx, s.mockBot, message))
		s.assertAll(t)
	})
}

func TestHandleUnlink(t *testing.T) {
	ctx := context.Background()
	const chatID = int64(55555)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/unlink")
		s.mockIdentities.On("Unlink", ctx, chatID).Return(nil).Once()
		s.mockWorkflows.On("Forget", ctx, chatID).Return(errors.New("redis timeout")).Once()
		s.expectActivity(ctx, message, ActionCommandUnlink)
		sent := s.captureSend(ctx)

		// Act
		err := s.handler.HandleUnlink(ctx, s.mockBot, message)

		// Assert
		assert.NoError(t, err)
		s.assertAll(t)
		assert.Equal(t, locales.GetMessage(locales.NewLocalizer("en"), "MsgUnlinked", nil, nil), (*sent).Text)
	})

	t.Run("NotLinked", func(t *testing.T) {
		// Arrange
		s := setupTestHandlerSuite(t)
		message := newTestMessage(chatID, "/unlink")
		s.mockIdentities.On("Unlink", ctx, chatID).Return(auth.ErrNotLinked).Once()
		s.captureSend(ctx)

		// Act
		err := s.handler.HandleUnlink(ctx, s.mockBot, message)

		// Assert
		assert.ErrorIs(t, err, auth.ErrNotLinked)
		s.assertAll(t)
	})
}

func TestProcessWorkflowMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Consumed", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		message := newTestMessage(66666, "New title")
		s.mockWorkflows.On("HandleMessage", ctx, message).Return(true, nil).Once()
		s.expectActivity(ctx, message, ActionWorkflowInput)

		processed, err := s.handler.ProcessWorkflowMessage(ctx, message)

		assert.True(t, processed)
		assert.NoError(t, err)
		s.assertAll(t)
	})

	t.Run("Ignored", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		message := newTestMessage(66666, "hello")
		s.mockWorkflows.On("HandleMessage", ctx, message).Return(false, nil).Once()

		processed, err := s.handler.ProcessWorkflowMessage(ctx, message)

		assert.False(t, processed)
		assert.NoError(t, err)
		s.assertAll(t)
	})

	t.Run("FallbackText", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		message := newTestMessage(66666, "hello")
		sent := s.captureSend(ctx)

		assert.NoError(t, s.handler.HandleText(ctx, s.mockBot, message))
		assert.Equal(t, locales.GetMessage(locales.NewLocalizer("en"), "MsgUseCommands", nil, nil), (*sent).Text)
	})
}

func TestHandleCallbackQuery(t *testing.T) {
	ctx := context.Background()
	query := telego.CallbackQuery{ID: "q1", From: telego.User{ID: 77, Username: "anna", FirstName: "Anna", LanguageCode: "en"}, Data: "wf:next:1:"}

	t.Run("HandledByWorkflows", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflows.On("HandleCallbackQuery", ctx, query).Return(true, nil).Once()
		s.mockUserRepo.On("UpdateUser", ctx, int64(77), "anna", "Anna", "", ActionWorkflowCallback).Return(nil).Once()
		s.mockActionLogger.On("LogUserAction", int64(77), ActionWorkflowCallback, mock.Anything).Return(nil).Once()

		assert.NoError(t, s.handler.HandleCallbackQuery(ctx, s.mockBot, query))
		s.assertAll(t)
	})

	t.Run("Unhandled", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		foreign := query
		foreign.Data = "legacy:button"
		s.mockWorkflows.On("HandleCallbackQuery", ctx, foreign).Return(false, nil).Once()
		s.mockBot.On("AnswerCallbackQuery", ctx, mock.MatchedBy(func(p *telego.AnswerCallbackQueryParams) bool {
			return p.CallbackQueryID == "q1" && p.Text != ""
		})).Return(nil).Once()

		assert.NoError(t, s.handler.HandleCallbackQuery(ctx, s.mockBot, foreign))
		s.assertAll(t)
	})
}
