package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/ava-verify/ava/src/core/types"
)

const maxFieldLen = 1024 // Discord embed field limit

var verdictStyles = map[types.Verdict]struct {
	emoji string
	color int
}{
	types.VerdictTrue:         {"✅", 0x2ecc71},
	types.VerdictFalse:        {"❌", 0xe74c3c},
	types.VerdictMixed:        {"⚖️", 0xf1c40f},
	types.VerdictUnverifiable: {"❓", 0x95a5a6},
}

var failMessages = map[types.FailReason]string{
	types.FailNotAClaim:            "I couldn't find a checkable factual claim in that message.",
	types.FailClassificationFailed: "I couldn't analyze that message right now. Please try again later.",
	types.FailExtractionFailed:     "I couldn't extract a clear claim from that message.",
	types.FailSynthesisFailed:      "Verification failed while consulting the model. Please try again later.",
	types.FailSchemaViolation:      "The verification engine returned an unusable answer. Please try again.",
	types.FailProviderConfigError:  "The verification backend is misconfigured. An operator has been notified.",
}

var rejectMessages = map[types.RejectReason]string{
	types.RejectCooldownActive:      "You're going too fast — please wait a few seconds between fact checks.",
	types.RejectRateLimited:         "Per-user burst limit reached. Please wait a moment.",
	types.RejectGuildQuotaExceeded:  "This server has reached its daily fact-check limit.",
	types.RejectQueueFull:           "The fact-check queue is full. Please try again shortly.",
	types.RejectProviderUnavailable: "Fact checking is temporarily unavailable. Please try again later.",
}

// deliver posts a terminal job's outcome back to its channel.
func (b *Bot) deliver(job *types.Job) {
	b.mu.Lock()
	delete(b.pending, job.SourceMessageID)
	b.mu.Unlock()

	var err error
	if job.Status == types.StatusSucceeded && job.Result != nil {
		_, err = b.session.ChannelMessageSendComplex(job.ChannelID, &discordgo.MessageSend{
			Embed: verdictEmbed(job.Result),
			Reference: &discordgo.MessageReference{
				MessageID: job.SourceMessageID,
				ChannelID: job.ChannelID,
			},
		})
	} else {
		msg, ok := failMessages[job.FailReason]
		if !ok {
			msg = "Verification failed. Please try again later."
		}
		_, err = b.session.ChannelMessageSend(job.ChannelID, fmt.Sprintf("<@%s> %s", job.UserID, msg))
	}

	if err != nil {
		zap.S().Warnw("failed to deliver result", "job", job.ID, "channel", job.ChannelID, "error", err)
	}
}

func (b *Bot) replyRejection(s *discordgo.Session, m *discordgo.MessageCreate, reason types.RejectReason) {
	msg, ok := rejectMessages[reason]
	if !ok {
		msg = "Your request was rejected."
	}
	s.ChannelMessageSendReply(m.ChannelID, msg, m.Reference())
}

func verdictEmbed(result *types.VerificationResult) *discordgo.MessageEmbed {
	style, ok := verdictStyles[result.Verdict]
	if !ok {
		style = verdictStyles[types.VerdictUnverifiable]
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", style.emoji, strings.ToUpper(string(result.Verdict))),
		Color:       style.color,
		Description: truncate(result.Statement, maxFieldLen),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Confidence",
				Value:  fmt.Sprintf("%.0f%%", result.Confidence*100),
				Inline: true,
			},
			{
				Name:  "Reasoning",
				Value: truncate(result.Reasoning, maxFieldLen),
			},
		},
	}

	if len(result.Sources) > 0 {
		var lines []string
		for i, src := range result.Sources {
			if src.URL != "" {
				lines = append(lines, fmt.Sprintf("%d. [%s](%s)", i+1, src.Name, src.URL))
			} else {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, src.Name))
			}
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Sources",
			Value: truncate(strings.Join(lines, "\n"), maxFieldLen),
		})
	}

	if result.Model != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: result.Model}
	}
	return embed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
