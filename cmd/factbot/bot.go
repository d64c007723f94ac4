package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/logging"
)

// UserCooldown is how often one user may run /verify.
const UserCooldown = 30 * time.Second

// Verifier runs one verification.
type Verifier interface {
	Verify(ctx context.Context, claim string) *evidence.Record
}

// Bot answers /verify slash commands
type Bot struct {
	discord  *discordgo.Session
	verifier Verifier
	appID    string
	guildID  string
	log      *logging.Logger

	cooldownMu sync.Mutex
	cooldowns  map[string]*userCooldown
	cooldown   time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type userCooldown struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewBot creates a bot around an open-able session.
func NewBot(session *discordgo.Session, v Verifier, appID, guildID string, log *logging.Logger) *Bot {
	return &Bot{
		discord:   session,
		verifier:  v,
		appID:     appID,
		guildID:   guildID,
		log:       log,
		cooldowns: make(map[string]*userCooldown),
		cooldown:  UserCooldown,
		now:       time.Now,
	}
}

var verifyCommand = &discordgo.ApplicationCommand{
	Name:        "verify",
	Description: "Gather evidence for a claim and suggest a verdict",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "claim",
			Description: "The claim to check",
			Required:    true,
			MaxLength:   1000,
		},
	},
}

// RegisterCommands creates the slash commands for the configured guild,
// or globally when no guild is set.
func (b *Bot) RegisterCommands() error {
	if _, err := b.discord.ApplicationCommandCreate(b.appID, b.guildID, verifyCommand); err != nil {
		return fmt.Errorf("failed to create command %s: %v", verifyCommand.Name, err)
	}
	return nil
}

// allowUser reports whether userID is outside its cooldown.
func (b *Bot) allowUser(userID string) bool {
	b.cooldownMu.Lock()
	defer b.cooldownMu.Unlock()

	now := b.now()
	b.sweepCooldowns(now)

	entry, ok := b.cooldowns[userID]
	if !ok {
		entry = &userCooldown{limiter: rate.NewLimiter(rate.Every(b.cooldown), 1)}
		b.cooldowns[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweepCooldowns drops users idle for longer than the cooldown; their
// limiters would have refilled anyway. Runs at most once per cooldown.
func (b *Bot) sweepCooldowns(now time.Time) {
	if now.Sub(b.lastSweep) < b.cooldown {
		return
	}
	b.lastSweep = now
	for id, entry := range b.cooldowns {
		if now.Sub(entry.lastSeen) > b.cooldown {
			delete(b.cooldowns, id)
		}
	}
}

func interactionUser(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func claimOption(data discordgo.ApplicationCommandInteractionData) string {
	for _, opt := range data.Options {
		if opt.Name == "claim" {
			return opt.StringValue()
		}
	}
	return ""
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("PANIC in interaction handler: %v", r)
		}
	}()

	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != verifyCommand.Name {
		return
	}

	if err := b.handleVerify(s, i, claimOption(data)); err != nil {
		b.log.Error("Error handling /verify: %v", err)
	}
}

func (b *Bot) handleVerify(s *discordgo.Session, i *discordgo.InteractionCreate, claimText string) error {
	if claimText == "" {
		return b.replyEphemeral(s, i, "Please give me a claim to check.")
	}
	if !b.allowUser(interactionUser(i)) {
		return b.replyEphemeral(s, i, fmt.Sprintf("Slow down a little: one check every %s.", b.cooldown))
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return fmt.Errorf("failed to acknowledge interaction: %v", err)
	}

	// Interaction tokens stay valid for 15 minutes.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	rec := b.verifier.Verify(ctx, claimText)
	embeds := []*discordgo.MessageEmbed{BuildVerdictEmbed(rec)}

	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	})
	if err != nil {
		return fmt.Errorf("failed to send response: %v", err)
	}
	return nil
}

func (b *Bot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// Start opens the gateway connection and registers commands.
func (b *Bot) Start() error {
	b.discord.AddHandler(b.onInteraction)
	b.discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("Logged in as %s#%s", r.User.Username, r.User.Discriminator)
	})

	if err := b.discord.Open(); err != nil {
		return fmt.Errorf("failed to connect to Discord: %v", err)
	}
	if err := b.RegisterCommands(); err != nil {
		b.discord.Close()
		return err
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.discord.Close()
}
