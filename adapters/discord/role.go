package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
)

// RoleGrantor implements the RoleGrantor interface against a guild role
// looked up by its configured name.
type RoleGrantor struct {
	session  *discordgo.Session
	guildID  string
	roleName string
}

// NewRoleGrantor creates a new Discord role grantor
func NewRoleGrantor(session *discordgo.Session, guildID, roleName string) ports.RoleGrantor {
	return &RoleGrantor{
		session:  session,
		guildID:  guildID,
		roleName: roleName,
	}
}

// Grant assigns the verified role to the member. Adding a role the member
// already holds is a no-op on the platform side, which keeps Grant idempotent.
func (g *RoleGrantor) Grant(ctx context.Context, requesterID string) error {
	roleID, err := g.roleID(ctx)
	if err != nil {
		return err
	}

	if err := g.session.GuildMemberRoleAdd(g.guildID, requesterID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

// Has reports whether the member already holds the verified role
func (g *RoleGrantor) Has(ctx context.Context, requesterID string) (bool, error) {
	roleID, err := g.roleID(ctx)
	if err != nil {
		return false, err
	}

	member, err := g.session.GuildMember(g.guildID, requesterID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to fetch member: %w", err)
	}

	for _, id := range member.Roles {
		if id == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (g *RoleGrantor) roleID(ctx context.Context) (string, error) {
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to list roles: %w", err)
	}

	for _, role := range roles {
		if role.Name == g.roleName {
			return role.ID, nil
		}
	}
	return "", core.ErrRoleNotConfigured
}
