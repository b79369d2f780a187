package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
)

// WorkspaceManager implements the WorkspaceManager interface with private
// guild text channels. Visibility is restricted to the requester and the bot
// by denying the guild-wide role and allowing exactly those two members.
type WorkspaceManager struct {
	session *discordgo.Session
	guildID string
	botID   string
}

// NewWorkspaceManager creates a new Discord workspace manager
func NewWorkspaceManager(session *discordgo.Session, guildID, botID string) ports.WorkspaceManager {
	return &WorkspaceManager{
		session: session,
		guildID: guildID,
		botID:   botID,
	}
}

// Open creates the private verification channel for a requester
func (m *WorkspaceManager) Open(ctx context.Context, requesterID, displayName string) (*core.Workspace, error) {
	name := core.WorkspaceName(displayName)

	memberAllow := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory)

	channel, err := m.session.GuildChannelCreateComplex(m.guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildText,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:   m.guildID, // @everyone shares the guild ID
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: int64(discordgo.PermissionViewChannel),
			},
			{
				ID:    requesterID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: memberAllow,
			},
			{
				ID:    m.botID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: memberAllow | int64(discordgo.PermissionManageMessages),
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &core.Workspace{
		ID:          channel.ID,
		RequesterID: requesterID,
		Name:        name,
	}, nil
}

// Close deletes the channel, tolerating one that is already gone
func (m *WorkspaceManager) Close(ctx context.Context, workspace *core.Workspace) error {
	_, err := m.session.ChannelDelete(workspace.ID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return nil
		}
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

// Post sends a message into the channel
func (m *WorkspaceManager) Post(ctx context.Context, workspace *core.Workspace, text string) error {
	if _, err := m.session.ChannelMessageSend(workspace.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
