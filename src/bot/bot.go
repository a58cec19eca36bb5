package bot

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ava-verify/ava/src/core/types"
	"github.com/ava-verify/ava/src/core/worker"
	"github.com/ava-verify/ava/src/data"
)

// Config holds the chat-surface tunables.
type Config struct {
	Token          string
	MaxClaimLength int // characters of claim text forwarded to the pipeline
	ContextWindow  int // prior messages passed as conversational context
}

func (c Config) withDefaults() Config {
	if c.MaxClaimLength <= 0 {
		c.MaxClaimLength = 500
	}
	if c.ContextWindow < 0 {
		c.ContextWindow = 0
	}
	if c.ContextWindow > 10 {
		c.ContextWindow = 10
	}
	return c
}

// Bot is the Discord surface: it turns mentions into submissions and
// terminal jobs back into replies. All verification mechanics live in
// the core service.
type Bot struct {
	session *discordgo.Session
	db      *gorm.DB
	svc     *worker.Service
	cfg     Config

	mu      sync.Mutex
	pending map[string]*types.Job // source message ID -> in-flight job
}

func New(cfg Config, db *gorm.DB, svc *worker.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session: session,
		db:      db,
		svc:     svc,
		cfg:     cfg.withDefaults(),
		pending: make(map[string]*types.Job),
	}

	svc.SetDeliver(b.deliver)
	b.initHandlers()
	return b, nil
}

func (b *Bot) initHandlers() {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		zap.S().Infow("logged in", "user", s.State.User.Username)
	})
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if !b.mentioned(s, m.Message) {
		return
	}
	if !b.guildAllows(s, m) {
		return
	}

	// Reply + mention verifies the referenced message; a bare mention
	// verifies the inline text after stripping the mention itself.
	var claimText, sourceMessageID string
	if m.MessageReference != nil {
		ref, err := s.ChannelMessage(m.ChannelID, m.MessageReference.MessageID)
		if err != nil || ref.Content == "" {
			return
		}
		claimText = ref.Content
		sourceMessageID = ref.ID
	} else {
		claimText = b.stripMention(s, m.Content)
		sourceMessageID = m.ID
	}

	claimText = strings.TrimSpace(claimText)
	if claimText == "" {
		return
	}
	claimText = truncateRunes(claimText, b.cfg.MaxClaimLength)

	job, reason := b.svc.Submit(worker.SubmitRequest{
		UserID:          m.Author.ID,
		GuildID:         m.GuildID,
		ChannelID:       m.ChannelID,
		SourceMessageID: sourceMessageID,
		Text:            claimText,
		Context:         b.contextWindow(s, m, sourceMessageID),
	})
	if reason != "" {
		b.replyRejection(s, m, reason)
		return
	}

	b.mu.Lock()
	b.pending[sourceMessageID] = job
	b.mu.Unlock()

	s.MessageReactionAdd(m.ChannelID, m.ID, "🔍")
}

// onMessageDelete cancels a pending job when its source message goes
// away. An in-flight external call still completes; the result is
// discarded by the pipeline.
func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	b.mu.Lock()
	job, ok := b.pending[m.ID]
	if ok {
		delete(b.pending, m.ID)
	}
	b.mu.Unlock()

	if ok {
		zap.S().Infow("source message deleted, canceling job", "job", job.ID)
		job.Cancel()
	}
}

func (b *Bot) mentioned(s *discordgo.Session, m *discordgo.Message) bool {
	if s.State.User == nil {
		return false
	}
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			return true
		}
	}
	return false
}

// truncateRunes caps s at n characters without splitting a multi-byte
// rune mid-sequence.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (b *Bot) stripMention(s *discordgo.Session, content string) string {
	content = strings.ReplaceAll(content, fmt.Sprintf("<@%s>", s.State.User.ID), "")
	content = strings.ReplaceAll(content, fmt.Sprintf("<@!%s>", s.State.User.ID), "")
	return content
}

func (b *Bot) guildAllows(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.GuildID == "" {
		return true // DMs carry no guild policy
	}

	guild, err := data.GuildConfig(b.db, m.GuildID)
	if err != nil {
		zap.S().Warnw("failed to load guild config", "guild", m.GuildID, "error", err)
		return true
	}
	if !guild.Enabled {
		return false
	}
	if guild.RequiredRoleID != "" && !b.hasRole(s, m.GuildID, m.Author.ID, guild.RequiredRoleID) {
		return false
	}
	return true
}

func (b *Bot) hasRole(s *discordgo.Session, guildID, userID, roleID string) bool {
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// contextWindow fetches up to the configured number of messages that
// precede the claim, oldest first.
func (b *Bot) contextWindow(s *discordgo.Session, m *discordgo.MessageCreate, beforeID string) []string {
	if b.cfg.ContextWindow == 0 {
		return nil
	}

	msgs, err := s.ChannelMessages(m.ChannelID, b.cfg.ContextWindow, beforeID, "", "")
	if err != nil {
		return nil
	}

	// Discord returns newest first.
	var out []string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Content == "" || msgs[i].Author.Bot {
			continue
		}
		out = append(out, msgs[i].Content)
	}
	return out
}
