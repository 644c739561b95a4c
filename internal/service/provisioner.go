package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"arena-backend/internal/compute"
	"arena-backend/internal/config"
	"arena-backend/internal/constants"
	"arena-backend/internal/domain"
	"arena-backend/internal/events"
	"arena-backend/internal/repository"
)

// ServerProvisioner turns a match assignment into a running game-server
// machine and later tears it down. It only talks to the provider; row
// persistence stays with the caller.
type ServerProvisioner struct {
	client       compute.Client
	instanceRepo *repository.ServerInstanceRepository
	logger       zerolog.Logger

	region          string
	zone            string
	machineTemplate string

	pollInterval     time.Duration
	startTimeout     time.Duration
	shutdownInterval time.Duration
	shutdownTimeout  time.Duration
}

func NewServerProvisioner(
	client compute.Client,
	instanceRepo *repository.ServerInstanceRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *ServerProvisioner {
	return &ServerProvisioner{
		client:           client,
		instanceRepo:     instanceRepo,
		logger:           logger,
		region:           cfg.ProviderRegion,
		zone:             cfg.ProviderZone,
		machineTemplate:  cfg.MachineTemplate,
		pollInterval:     cfg.ProvisionPollInterval,
		startTimeout:     cfg.ProvisionTimeout,
		shutdownInterval: cfg.ShutdownPollInterval,
		shutdownTimeout:  cfg.ShutdownTimeout,
	}
}

// SpawnServer creates the instance for a match and waits for it to come up.
// Labels and metadata carry the match assignment so the game-server build
// can configure itself on boot.
func (p *ServerProvisioner) SpawnServer(ctx context.Context, req events.SpawnRequested) (*domain.ServerInstance, error) {
	name := instanceName(req.MatchID)

	p.logger.Info().
		Str("match_id", req.MatchID).
		Str("instance", name).
		Str("zone", p.zone).
		Msg("creating game-server instance")

	opID, err := p.client.CreateInstance(ctx, compute.CreateInstanceRequest{
		Name:            name,
		MachineTemplate: p.machineTemplate,
		Labels: map[string]string{
			"match-id": strings.ToLower(req.MatchID),
			"ladder":   string(req.Ladder),
		},
		Metadata: map[string]string{
			"team-a": strings.Join(req.TeamA, ","),
			"team-b": strings.Join(req.TeamB, ","),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance for match %s: %w", req.MatchID, err)
	}

	if err := p.waitForOperation(ctx, opID, p.pollInterval, p.startTimeout, domain.ErrServerStartTimeout); err != nil {
		return nil, fmt.Errorf("instance %s did not start: %w", name, err)
	}

	// The external address may still be pending; an empty one is tolerated
	// and the game server reports in once it has connectivity.
	address := ""
	inst, err := p.client.GetInstance(ctx, name)
	if err != nil {
		p.logger.Warn().Err(err).Str("instance", name).Msg("failed to read instance metadata")
	} else {
		address = inst.ExternalAddress()
	}

	p.logger.Info().
		Str("match_id", req.MatchID).
		Str("instance", name).
		Str("address", address).
		Msg("game-server instance running")

	return &domain.ServerInstance{
		Name:     name,
		Provider: "compute",
		Region:   p.region,
		Zone:     p.zone,
		Address:  address,
		Port:     constants.GameServerPort,
	}, nil
}

// ShutdownInstance deletes the machine and marks its row stopped. Teardown
// is best-effort: a failure leaks a machine, it does not fail the pipeline.
func (p *ServerProvisioner) ShutdownInstance(ctx context.Context, name string) error {
	p.logger.Info().Str("instance", name).Msg("shutting down game-server instance")

	opID, err := p.client.DeleteInstance(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", name, err)
	}

	if err := p.waitForOperation(ctx, opID, p.shutdownInterval, p.shutdownTimeout, domain.ErrServerStartTimeout); err != nil {
		return fmt.Errorf("instance %s did not shut down: %w", name, err)
	}

	if err := p.instanceRepo.MarkStopped(ctx, name); err != nil {
		return fmt.Errorf("failed to mark instance %s stopped: %w", name, err)
	}

	p.logger.Info().Str("instance", name).Msg("game-server instance stopped")
	return nil
}

// waitForOperation polls a provider operation until it reports done, it
// reports an error, or the timeout elapses.
func (p *ServerProvisioner) waitForOperation(ctx context.Context, opID string, interval, timeout time.Duration, timeoutErr error) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		op, err := p.client.GetOperation(ctx, opID)
		if err != nil {
			return fmt.Errorf("failed to poll operation %s: %w", opID, err)
		}
		if op.Error != "" {
			return fmt.Errorf("operation %s failed: %s", opID, op.Error)
		}
		if op.Done() {
			return nil
		}
		if time.Now().After(deadline) {
			return timeoutErr
		}
	}
}

func instanceName(matchID string) string {
	return "match-" + strings.ToLower(matchID)
}
