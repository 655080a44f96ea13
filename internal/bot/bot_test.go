package bot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/duelbot/internal/config"
	discordmock "github.com/fadedpez/duelbot/internal/discord/mock"
	duelmock "github.com/fadedpez/duelbot/internal/duel/mock"
	"github.com/fadedpez/duelbot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BotTestSuite struct {
	suite.Suite
	session *discordmock.SessionHandler
	config  *config.Config
	backend *duelmock.MockInitializer
	bot     *Bot
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (s *BotTestSuite) SetupTest() {
	s.session = &discordmock.SessionHandler{}
	s.session.Test(s.T())
	s.config = &config.Config{
		AppID:                "test-app-id",
		GuildID:              "test-guild-id",
		UIURL:                "https://ui.test",
		BattlefieldChannelID: testChannelID,
		AdminRoleID:          testRoleID,
		Environment:          "development",
	}

	// Mock AddHandler calls
	s.session.On("AddHandler", mock.AnythingOfType("func(*discordgo.Session, *discordgo.InteractionCreate)")).
		Return(func() {}).Once()

	s.backend = duelmock.NewMockInitializer(gomock.NewController(s.T()))
	s.bot = newBot(s.config, s.session, s.backend, logging.Nop())
}

func (s *BotTestSuite) TestNewBotRegistersHandler() {
	s.session.AssertExpectations(s.T())
	s.NotNil(s.bot.practice)
	s.Empty(s.bot.commands)
}

func (s *BotTestSuite) TestStart() {
	s.session.On("Open").Return(nil).Once()
	registeredCmd := &discordgo.ApplicationCommand{
		ID:   "new-cmd-id",
		Name: PracticeCommandName,
	}
	s.session.On("ApplicationCommandCreate", s.config.AppID, s.config.GuildID, mock.Anything).
		Return(registeredCmd, nil)

	err := s.bot.Start()

	s.Require().NoError(err)
	s.session.AssertExpectations(s.T())
	s.Equal(len(Commands), len(s.bot.commands))
}

func (s *BotTestSuite) TestStartOpenError() {
	s.session.On("Open").Return(assert.AnError).Once()

	err := s.bot.Start()

	s.Require().ErrorIs(err, assert.AnError)
	s.session.AssertNotCalled(s.T(), "ApplicationCommandCreate", mock.Anything, mock.Anything, mock.Anything)
}

func (s *BotTestSuite) TestRegisterCommandsError() {
	s.session.On("Open").Return(nil).Once()
	s.session.On("ApplicationCommandCreate", s.config.AppID, s.config.GuildID, mock.Anything).
		Return(nil, assert.AnError)

	err := s.bot.Start()

	s.Require().Error(err)
	s.session.AssertExpectations(s.T())
	s.Empty(s.bot.commands)
}

func (s *BotTestSuite) TestCleanupCommands() {
	existingCmds := []*discordgo.ApplicationCommand{
		{ID: "cmd1", Name: "test1"},
		{ID: "cmd2", Name: "test2"},
	}
	s.session.On("ApplicationCommands", s.config.AppID, s.config.GuildID).Return(existingCmds, nil)
	for _, cmd := range existingCmds {
		s.session.On("ApplicationCommandDelete", s.config.AppID, s.config.GuildID, cmd.ID).Return(nil).Once()
	}

	err := s.bot.cleanupCommands()

	s.Require().NoError(err)
	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestCleanupCommandsError() {
	s.session.On("ApplicationCommands", s.config.AppID, s.config.GuildID).Return(nil, assert.AnError)

	err := s.bot.cleanupCommands()

	s.Require().Error(err)
	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestShutdownDevelopment() {
	s.session.On("ApplicationCommands", s.config.AppID, s.config.GuildID).
		Return([]*discordgo.ApplicationCommand{{ID: "cmd1", Name: PracticeCommandName}}, nil)
	s.session.On("ApplicationCommandDelete", s.config.AppID, s.config.GuildID, "cmd1").Return(nil).Once()
	s.session.On("Close").Return(nil).Once()

	s.bot.Shutdown()

	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestShutdownProductionKeepsCommands() {
	s.config.Environment = "production"
	s.session.On("Close").Return(nil).Once()

	s.bot.Shutdown()

	s.session.AssertExpectations(s.T())
	s.session.AssertNotCalled(s.T(), "ApplicationCommands", mock.Anything, mock.Anything)
}

func (s *BotTestSuite) TestInteractionAfterShutdownIsDropped() {
	s.config.Environment = "production"
	s.session.On("Close").Return(nil).Once()
	s.bot.Shutdown()

	s.bot.handleInteractionCreate(nil, practiceInteraction(testChannelID, memberWithRoles(testRoleID)))

	s.session.AssertNotCalled(s.T(), "InteractionRespond", mock.Anything, mock.Anything)
}

func (s *BotTestSuite) TestShutdownWaitsForInFlightInvocation() {
	s.config.Environment = "production"
	i := practiceInteraction(testChannelID, memberWithRoles(testRoleID))

	started := make(chan struct{})
	release := make(chan struct{})
	s.session.On("InteractionRespond", i.Interaction, mock.Anything).Return(nil).Once()
	s.session.On("InteractionResponseEdit", i.Interaction, mock.Anything).Return(&discordgo.Message{}, nil).Once()
	s.session.On("Close").Return(nil).Once()
	s.backend.EXPECT().InitPractice(gomock.Any()).DoAndReturn(func(ctx context.Context) (json.RawMessage, error) {
		close(started)
		<-release
		return json.RawMessage(`{}`), nil
	})

	handled := make(chan struct{})
	go func() {
		s.bot.handleInteractionCreate(nil, i)
		close(handled)
	}()
	<-started

	shutdown := make(chan struct{})
	go func() {
		s.bot.Shutdown()
		close(shutdown)
	}()

	select {
	case <-shutdown:
		s.Fail("Shutdown returned while an invocation was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-handled
	<-shutdown
	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestPanicRepliesWithInternalError() {
	i := practiceInteraction(testChannelID, memberWithRoles(testRoleID))

	s.session.On("InteractionRespond", i.Interaction, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource
	})).Return(nil).Once()
	s.session.On("InteractionRespond", i.Interaction, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Type == discordgo.InteractionResponseChannelMessageWithSource
	})).Return(assert.AnError).Once()
	var edit *discordgo.WebhookEdit
	s.session.On("InteractionResponseEdit", i.Interaction, mock.Anything).
		Run(func(args mock.Arguments) {
			edit = args.Get(1).(*discordgo.WebhookEdit)
		}).
		Return(&discordgo.Message{}, nil).Once()
	s.backend.EXPECT().InitPractice(gomock.Any()).DoAndReturn(func(ctx context.Context) (json.RawMessage, error) {
		panic("backend exploded")
	})

	s.NotPanics(func() {
		s.bot.handleInteractionCreate(nil, i)
	})

	s.session.AssertExpectations(s.T())
	s.Require().NotNil(edit)
	s.Require().NotNil(edit.Content)
	s.Equal("💥 Something went wrong while handling this command.", *edit.Content)
}
