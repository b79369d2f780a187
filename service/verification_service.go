package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/metrics"
	"github.com/0xblckmrq/signatory-role/ports"
)

// Config carries the tunable windows of the verification workflow
type Config struct {
	CooldownWindow time.Duration // Minimum gap between begin attempts per requester
	ChallengeTTL   time.Duration // How long an unanswered challenge and its workspace live
	CloseGrace     time.Duration // Delay before closing the workspace after success
	PublicBaseURL  string        // Externally reachable base URL for the signer page
}

func (c *Config) applyDefaults() {
	if c.CooldownWindow <= 0 {
		c.CooldownWindow = time.Minute
	}
	if c.ChallengeTTL <= 0 {
		c.ChallengeTTL = 10 * time.Minute
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = 5 * time.Second
	}
}

// BeginResult is the outcome of a successful begin transition
type BeginResult struct {
	AlreadyVerified bool
	Challenge       *core.Challenge
	Workspace       *core.Workspace
	SignerURL       string
}

// SubmitResult is the outcome of a successful submit transition
type SubmitResult struct {
	Wallet string
}

// teardown is the pending workspace cleanup scheduled at challenge issue time
type teardown struct {
	timer     *time.Timer
	workspace *core.Workspace
}

// VerificationService orchestrates the verification state machine: per
// requester, Idle -> PendingSignature -> Granted, with every failure path
// returning to Idle once the cooldown window passes.
type VerificationService struct {
	allowlist  ports.AllowlistClient
	verifier   ports.SignatureVerifier
	challenges ports.ChallengeStore
	cooldowns  ports.CooldownTracker
	workspaces ports.WorkspaceManager
	roles      ports.RoleGrantor
	gate       ports.TokenGate
	events     ports.EventPublisher
	links      ports.LinkTokenizer

	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	now func() time.Time

	mu        sync.Mutex
	teardowns map[string]*teardown
}

// Deps bundles the collaborators injected into the service. Gate, Events,
// Links and Metrics are optional.
type Deps struct {
	Allowlist  ports.AllowlistClient
	Verifier   ports.SignatureVerifier
	Challenges ports.ChallengeStore
	Cooldowns  ports.CooldownTracker
	Workspaces ports.WorkspaceManager
	Roles      ports.RoleGrantor
	Gate       ports.TokenGate
	Events     ports.EventPublisher
	Links      ports.LinkTokenizer
	Metrics    *metrics.Metrics
}

// NewVerificationService creates a new verification service
func NewVerificationService(deps Deps, cfg Config, logger *slog.Logger) *VerificationService {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &VerificationService{
		allowlist:  deps.Allowlist,
		verifier:   deps.Verifier,
		challenges: deps.Challenges,
		cooldowns:  deps.Cooldowns,
		workspaces: deps.Workspaces,
		roles:      deps.Roles,
		gate:       deps.Gate,
		events:     deps.Events,
		links:      deps.Links,
		cfg:        cfg,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        time.Now,
		teardowns:  make(map[string]*teardown),
	}
}

// Begin starts a verification attempt. On success a challenge is pending and
// the requester has a private workspace with signing instructions; on any
// failure no challenge or workspace is left behind, though the cooldown
// reservation is kept so failed attempts still consume the window.
func (s *VerificationService) Begin(ctx context.Context, requesterID, displayName, claimedWallet string) (*BeginResult, error) {
	verified, err := s.roles.Has(ctx, requesterID)
	if err != nil {
		s.metrics.IncrementBegin("error")
		return nil, fmt.Errorf("failed to check existing role: %w", err)
	}
	if verified {
		s.metrics.IncrementBegin("already_verified")
		return &BeginResult{AlreadyVerified: true}, nil
	}

	ok, remaining, err := s.cooldowns.CheckAndReserve(ctx, requesterID, s.now(), s.cfg.CooldownWindow)
	if err != nil {
		s.metrics.IncrementBegin("error")
		return nil, fmt.Errorf("failed to reserve cooldown: %w", err)
	}
	if !ok {
		s.metrics.IncrementBegin("blocked")
		return nil, &core.BlockedError{Remaining: remaining}
	}

	entries, err := s.allowlist.Fetch(ctx)
	if err != nil {
		s.metrics.IncrementBegin("error")
		s.metrics.IncrementAllowlistError()
		return nil, err
	}

	wallet, err := matchEligible(entries, claimedWallet)
	if err != nil {
		s.metrics.IncrementBegin("not_eligible")
		return nil, err
	}

	workspace, err := s.workspaces.Open(ctx, requesterID, displayName)
	if err != nil {
		s.metrics.IncrementBegin("error")
		s.logger.Error("workspace creation failed", "requester", requesterID, "error", err)
		return nil, fmt.Errorf("open workspace: %w", core.ErrWorkspaceCreateFailed)
	}

	challenge := core.NewChallenge(requesterID, wallet, s.now())
	if err := s.challenges.Issue(ctx, challenge); err != nil {
		s.metrics.IncrementBegin("error")
		// Unwind the workspace so a failed begin leaves no partial state.
		if closeErr := s.workspaces.Close(ctx, workspace); closeErr != nil {
			s.logger.Error("failed to unwind workspace", "requester", requesterID, "error", closeErr)
		}
		return nil, fmt.Errorf("failed to issue challenge: %w", err)
	}

	signerURL, err := s.signerURL(requesterID, challenge.Message)
	if err != nil {
		s.metrics.IncrementBegin("error")
		if clearErr := s.challenges.Clear(ctx, requesterID); clearErr != nil {
			s.logger.Error("failed to unwind challenge", "requester", requesterID, "error", clearErr)
		}
		if closeErr := s.workspaces.Close(ctx, workspace); closeErr != nil {
			s.logger.Error("failed to unwind workspace", "requester", requesterID, "error", closeErr)
		}
		return nil, err
	}

	s.scheduleTeardown(requesterID, workspace)

	instructions := fmt.Sprintf(
		"**Wallet Verification Started**\n\nSign this message:\n`%s`\n\nSigner page:\n%s\n\nThen submit the signature with `/submit-signature`.",
		challenge.Message, signerURL,
	)
	if err := s.workspaces.Post(ctx, workspace, instructions); err != nil {
		// The instructions also travel back in the command reply, so a failed
		// post degrades the experience without invalidating the attempt.
		s.logger.Warn("failed to post instructions", "requester", requesterID, "error", err)
	}

	s.metrics.IncrementBegin("issued")
	s.logger.Info("challenge issued", "requester", requesterID, "wallet", wallet, "workspace", workspace.Name)

	return &BeginResult{
		Challenge: challenge,
		Workspace: workspace,
		SignerURL: signerURL,
	}, nil
}

// Submit completes a verification attempt with a wallet signature. Signature
// and wallet failures keep the challenge alive so the requester can retry
// until the teardown timer expires it.
func (s *VerificationService) Submit(ctx context.Context, requesterID, signature string) (*SubmitResult, error) {
	challenge, err := s.challenges.Get(ctx, requesterID)
	if err != nil {
		s.metrics.IncrementSubmit("error")
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if challenge == nil {
		s.metrics.IncrementSubmit("no_challenge")
		return nil, core.ErrNoActiveChallenge
	}

	recovered, err := s.verifier.RecoverAddress(challenge.Message, signature)
	if err != nil {
		s.metrics.IncrementSubmit("invalid_signature")
		return nil, err
	}

	if !strings.EqualFold(recovered, challenge.ExpectedWallet) {
		s.metrics.IncrementSubmit("wallet_mismatch")
		return nil, core.ErrWalletMismatch
	}

	if s.gate != nil {
		holds, err := s.gate.Holds(ctx, recovered)
		if err != nil {
			s.metrics.IncrementSubmit("error")
			s.logger.Error("token gate check failed", "requester", requesterID, "error", err)
			return nil, fmt.Errorf("failed to check token possession: %w", err)
		}
		if !holds {
			s.metrics.IncrementSubmit("token_not_held")
			return nil, core.ErrTokenNotHeld
		}
	}

	if err := s.roles.Grant(ctx, requesterID); err != nil {
		s.metrics.IncrementSubmit("error")
		if errors.Is(err, core.ErrRoleNotConfigured) {
			return nil, err
		}
		s.logger.Error("role grant failed", "requester", requesterID, "error", err)
		return nil, fmt.Errorf("failed to grant role: %w", err)
	}

	if err := s.challenges.Clear(ctx, requesterID); err != nil {
		s.logger.Error("failed to clear challenge after grant", "requester", requesterID, "error", err)
	}

	s.completeTeardown(requesterID)

	if s.events != nil {
		if err := s.events.PublishGranted(ctx, requesterID, recovered); err != nil {
			s.logger.Warn("failed to publish granted event", "requester", requesterID, "error", err)
		}
	}

	s.metrics.IncrementSubmit("granted")
	s.logger.Info("verification granted", "requester", requesterID, "wallet", recovered)

	return &SubmitResult{Wallet: recovered}, nil
}

// Remaining reports the cooldown wait left for a requester
func (s *VerificationService) Remaining(ctx context.Context, requesterID string) (time.Duration, error) {
	return s.cooldowns.Remaining(ctx, requesterID, s.now(), s.cfg.CooldownWindow)
}

// matchEligible resolves the wallet a challenge should bind to. A claimed
// wallet must match an entry exactly and pass both status gates with a
// per-gate failure reason; otherwise the first fully eligible entry wins.
func matchEligible(entries []core.AllowlistEntry, claimedWallet string) (string, error) {
	claimed := strings.ToLower(strings.TrimSpace(claimedWallet))

	if claimed != "" {
		for _, entry := range entries {
			if !strings.EqualFold(entry.WalletAddress, claimed) {
				continue
			}
			if !strings.EqualFold(entry.CovenantStatus, core.CovenantSigned) {
				return "", core.ErrCovenantNotSigned
			}
			if !strings.EqualFold(entry.HumanityStatus, core.HumanityVerified) {
				return "", core.ErrHumanityNotVerified
			}
			return entry.WalletAddress, nil
		}
		return "", core.ErrNotInAllowlist
	}

	for _, entry := range entries {
		if entry.Eligible() {
			return entry.WalletAddress, nil
		}
	}
	return "", core.ErrNotInAllowlist
}

func (s *VerificationService) signerURL(requesterID, message string) (string, error) {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	signerURL := fmt.Sprintf("%s/signer.html?msg=%s", base, url.QueryEscape(message))

	if s.links == nil {
		return signerURL, nil
	}

	token, err := s.links.Mint(requesterID)
	if err != nil {
		return "", fmt.Errorf("failed to mint link token: %w", err)
	}
	return signerURL + "&token=" + url.QueryEscape(token), nil
}

// scheduleTeardown arms the unconditional workspace cleanup for a freshly
// issued challenge, replacing (and disarming) any timer from an overwritten
// attempt so the old timer cannot reap the new workspace.
func (s *VerificationService) scheduleTeardown(requesterID string, workspace *core.Workspace) {
	s.mu.Lock()
	prior, replaced := s.teardowns[requesterID]
	if replaced {
		prior.timer.Stop()
	}

	td := &teardown{workspace: workspace}
	td.timer = time.AfterFunc(s.cfg.ChallengeTTL, func() {
		s.expire(requesterID, td)
	})
	s.teardowns[requesterID] = td
	s.mu.Unlock()

	if !replaced {
		return
	}

	// The superseded attempt's workspace has no registration left to reap
	// it; close it now instead of leaking the channel.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.workspaces.Close(ctx, prior.workspace); err != nil {
			s.logger.Error("failed to close superseded workspace", "requester", requesterID, "error", err)
		}
	}()
}

// expire is the timer path: drop the challenge and close the workspace. A
// stale timer whose registration was already replaced or completed is a no-op.
func (s *VerificationService) expire(requesterID string, td *teardown) {
	s.mu.Lock()
	if current, exists := s.teardowns[requesterID]; !exists || current != td {
		s.mu.Unlock()
		return
	}
	delete(s.teardowns, requesterID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.challenges.Clear(ctx, requesterID); err != nil {
		s.logger.Error("failed to expire challenge", "requester", requesterID, "error", err)
	}
	if err := s.workspaces.Close(ctx, td.workspace); err != nil {
		s.logger.Error("failed to close expired workspace", "requester", requesterID, "error", err)
	}

	s.logger.Info("challenge expired", "requester", requesterID, "workspace", td.workspace.Name)
}

// completeTeardown is the success path: disarm the expiry timer and close the
// workspace after the grace delay so the success message stays visible.
func (s *VerificationService) completeTeardown(requesterID string) {
	s.mu.Lock()
	td, exists := s.teardowns[requesterID]
	if exists {
		td.timer.Stop()
		delete(s.teardowns, requesterID)
	}
	s.mu.Unlock()

	if !exists {
		// No local registration: the challenge was issued by another process
		// or survived a restart in the redis tier, so its workspace cannot
		// be closed from here.
		s.logger.Debug("no pending teardown for granted requester", "requester", requesterID)
		return
	}

	time.AfterFunc(s.cfg.CloseGrace, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.workspaces.Close(ctx, td.workspace); err != nil {
			s.logger.Error("failed to close workspace after grant", "requester", requesterID, "error", err)
		}
	})
}
