package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/service"
)

const (
	commandBegin  = "begin-verification"
	commandSubmit = "submit-signature"
)

// Commands wires the slash-command surface to the verification service.
// It holds no state of its own.
type Commands struct {
	session *discordgo.Session
	service *service.VerificationService
	appID   string
	guildID string
	logger  *slog.Logger
}

// NewCommands creates the slash-command adapter
func NewCommands(session *discordgo.Session, svc *service.VerificationService, appID, guildID string, logger *slog.Logger) *Commands {
	return &Commands{
		session: session,
		service: svc,
		appID:   appID,
		guildID: guildID,
		logger:  logger,
	}
}

// Register creates the guild slash commands and installs the interaction handler
func (c *Commands) Register() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        commandBegin,
			Description: "Start wallet verification",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "wallet",
					Description: "Wallet address to verify (0x...)",
					Required:    false,
				},
			},
		},
		{
			Name:        commandSubmit,
			Description: "Submit the signature for your pending challenge",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "signature",
					Description: "Hex signature produced by your wallet",
					Required:    true,
				},
			},
		},
	}

	for _, cmd := range commands {
		if _, err := c.session.ApplicationCommandCreate(c.appID, c.guildID, cmd); err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
	}

	c.session.AddHandler(c.handleInteraction)
	return nil
}

func (c *Commands) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.Member == nil || i.Member.User == nil {
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case commandBegin:
		c.handleBegin(s, i, data)
	case commandSubmit:
		c.handleSubmit(s, i, data)
	}
}

func (c *Commands) handleBegin(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	// Begin fetches the allow-list and creates a channel; acknowledge first
	// so the three second interaction deadline does not cut us off.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		c.logger.Error("failed to defer interaction", "error", err)
		return
	}

	var wallet string
	for _, opt := range data.Options {
		if opt.Name == "wallet" {
			wallet = opt.StringValue()
		}
	}

	user := i.Member.User
	result, err := c.service.Begin(context.Background(), user.ID, user.Username, wallet)

	var reply string
	switch {
	case err != nil:
		reply = beginReply(err)
	case result.AlreadyVerified:
		reply = "You are already verified."
	default:
		reply = fmt.Sprintf("Verification started. Check your private channel <#%s> for signing instructions.", result.Workspace.ID)
	}

	c.respond(s, i, reply)
}

func (c *Commands) handleSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		c.logger.Error("failed to defer interaction", "error", err)
		return
	}

	var signature string
	for _, opt := range data.Options {
		if opt.Name == "signature" {
			signature = opt.StringValue()
		}
	}

	user := i.Member.User
	result, err := c.service.Submit(context.Background(), user.ID, signature)

	var reply string
	if err != nil {
		reply = submitReply(err)
	} else {
		reply = fmt.Sprintf("Verified! Wallet: %s", result.Wallet)
	}

	c.respond(s, i, reply)
}

func (c *Commands) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		c.logger.Error("failed to edit interaction response", "error", err)
	}
}

// beginReply translates begin failures into the user-facing reasons; anything
// infrastructural collapses to a generic message with details kept server-side.
func beginReply(err error) string {
	if blocked, ok := core.AsBlocked(err); ok {
		return fmt.Sprintf("Please wait %s before trying again.", blocked.Remaining.Round(time.Second))
	}
	switch {
	case errors.Is(err, core.ErrNotInAllowlist):
		return "Your wallet is not approved for verification."
	case errors.Is(err, core.ErrCovenantNotSigned):
		return "Your wallet has not signed the covenant."
	case errors.Is(err, core.ErrHumanityNotVerified):
		return "Your wallet's humanity verification is missing."
	case errors.Is(err, core.ErrAllowlistUnavailable):
		return "The allow-list is temporarily unavailable. Please try again later."
	case errors.Is(err, core.ErrWorkspaceCreateFailed):
		return "Could not create your verification channel. Please contact a moderator."
	default:
		return "Verification could not be started. Please try again later."
	}
}

func submitReply(err error) string {
	switch {
	case errors.Is(err, core.ErrNoActiveChallenge):
		return "No active challenge. Run `/begin-verification` first."
	case errors.Is(err, core.ErrInvalidSignature):
		return "Invalid signature."
	case errors.Is(err, core.ErrWalletMismatch):
		return "Signature does not match the expected wallet."
	case errors.Is(err, core.ErrTokenNotHeld):
		return "Your wallet does not hold the required token."
	default:
		return "Verification failed. Please try again later."
	}
}
