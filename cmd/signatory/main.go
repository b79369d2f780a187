package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/0xblckmrq/signatory-role/adapters/allowlist"
	"github.com/0xblckmrq/signatory-role/adapters/chain"
	"github.com/0xblckmrq/signatory-role/adapters/discord"
	"github.com/0xblckmrq/signatory-role/adapters/events"
	"github.com/0xblckmrq/signatory-role/adapters/signer"
	"github.com/0xblckmrq/signatory-role/adapters/store"
	"github.com/0xblckmrq/signatory-role/adapters/tokenizer"
	"github.com/0xblckmrq/signatory-role/config"
	"github.com/0xblckmrq/signatory-role/metrics"
	"github.com/0xblckmrq/signatory-role/ports"
	"github.com/0xblckmrq/signatory-role/service"
	httptransport "github.com/0xblckmrq/signatory-role/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Storage tier: redis when configured, in-memory otherwise
	var (
		challenges ports.ChallengeStore
		cooldowns  ports.CooldownTracker
		publisher  ports.EventPublisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		challenges = store.NewRedisChallengeStore(redisClient, cfg.ChallengeTTL)
		cooldowns = store.NewRedisCooldownTracker(redisClient)

		wmPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		publisher = events.NewWatermillPublisher(wmPublisher)
	} else {
		challenges = store.NewMemoryChallengeStore()
		cooldowns = store.NewMemoryCooldownTracker()
		publisher = events.NewNoopPublisher()
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to open Discord gateway: %v", err)
	}
	defer session.Close()
	logger.Info("connected to gateway", "user", session.State.User.Username)

	var gate ports.TokenGate
	if cfg.TokenGateEnabled() {
		gate, err = chain.NewSBTGate(cfg.RPCURL, cfg.SBTContract)
		if err != nil {
			log.Fatalf("Failed to set up token gate: %v", err)
		}
	}

	links := tokenizer.NewLinkTokenizer([]byte(cfg.LinkTokenSecret), cfg.ChallengeTTL)

	svc := service.NewVerificationService(service.Deps{
		Allowlist:  allowlist.NewClient(cfg.AllowlistURL, cfg.AllowlistAPIKey, logger),
		Verifier:   signer.NewEthereumVerifier(),
		Challenges: challenges,
		Cooldowns:  cooldowns,
		Workspaces: discord.NewWorkspaceManager(session, cfg.GuildID, session.State.User.ID),
		Roles:      discord.NewRoleGrantor(session, cfg.GuildID, cfg.RoleName),
		Gate:       gate,
		Events:     publisher,
		Links:      links,
		Metrics:    metrics.New(),
	}, service.Config{
		CooldownWindow: cfg.CooldownWindow,
		ChallengeTTL:   cfg.ChallengeTTL,
		CloseGrace:     cfg.CloseGrace,
		PublicBaseURL:  cfg.PublicBaseURL,
	}, logger)

	commands := discord.NewCommands(session, svc, cfg.AppID, cfg.GuildID, logger)
	if err := commands.Register(); err != nil {
		log.Fatalf("Failed to register commands: %v", err)
	}

	router := httptransport.SetupRouter(svc, links, cfg.WebDir, logger)
	go func() {
		if err := router.Run(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Info("verification service running", "addr", cfg.ListenAddr, "guild", cfg.GuildID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
