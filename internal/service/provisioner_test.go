package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-backend/internal/compute"
	"arena-backend/internal/domain"
	"arena-backend/internal/events"
	"arena-backend/internal/repository"
)

// fakeCompute scripts the provider: each poll consumes the next operation
// state, then the last state repeats.
type fakeCompute struct {
	mu      sync.Mutex
	script  []compute.Operation
	polls   int
	created []compute.CreateInstanceRequest
	deleted []string
	inst    *compute.Instance
}

func (f *fakeCompute) CreateInstance(_ context.Context, req compute.CreateInstanceRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return "op-create", nil
}

func (f *fakeCompute) GetOperation(context.Context, string) (*compute.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.polls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.polls++
	op := f.script[idx]
	return &op, nil
}

func (f *fakeCompute) GetInstance(context.Context, string) (*compute.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inst == nil {
		return &compute.Instance{}, nil
	}
	return f.inst, nil
}

func (f *fakeCompute) DeleteInstance(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return "op-delete", nil
}

func (f *fakeCompute) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func pending() compute.Operation {
	return compute.Operation{ID: "op-create", Status: compute.OperationPending}
}

func done() compute.Operation {
	return compute.Operation{ID: "op-create", Status: compute.OperationDone}
}

func spawnReq() events.SpawnRequested {
	return events.SpawnRequested{
		MatchID: "M1",
		Ladder:  domain.Ladder1v1,
		TeamA:   []string{"steam-0"},
		TeamB:   []string{"steam-1"},
	}
}

func newProvisioner(t *testing.T, client compute.Client) (*ServerProvisioner, *repository.ServerInstanceRepository) {
	t.Helper()
	db := newTestDB(t)
	instanceRepo := repository.NewServerInstanceRepository(db, zerolog.Nop())
	return NewServerProvisioner(client, instanceRepo, testConfig(), zerolog.Nop()), instanceRepo
}

func TestSpawnServerHappyPath(t *testing.T) {
	client := &fakeCompute{
		script: []compute.Operation{pending(), done()},
		inst: &compute.Instance{
			Name: "match-m1",
			NetworkInterfaces: []compute.NetworkInterface{
				{AccessConfigs: []compute.AccessConfig{{ExternalIP: "203.0.113.10"}}},
			},
		},
	}
	p, _ := newProvisioner(t, client)

	inst, err := p.SpawnServer(context.Background(), spawnReq())
	require.NoError(t, err)
	assert.Equal(t, "match-m1", inst.Name)
	assert.Equal(t, "203.0.113.10", inst.Address)
	assert.NotZero(t, inst.Port)

	require.Len(t, client.created, 1)
	assert.Equal(t, "m1", client.created[0].Labels["match-id"])
	assert.Equal(t, "1v1", client.created[0].Labels["ladder"])
	assert.Equal(t, "steam-0", client.created[0].Metadata["team-a"])
}

func TestSpawnServerToleratesMissingAddress(t *testing.T) {
	client := &fakeCompute{script: []compute.Operation{done()}}
	p, _ := newProvisioner(t, client)

	inst, err := p.SpawnServer(context.Background(), spawnReq())
	require.NoError(t, err)
	assert.Empty(t, inst.Address)
}

// An operation that never reaches done fails with the start-timeout error.
func TestSpawnServerTimesOut(t *testing.T) {
	client := &fakeCompute{script: []compute.Operation{pending()}}
	p, _ := newProvisioner(t, client)

	_, err := p.SpawnServer(context.Background(), spawnReq())
	require.ErrorIs(t, err, domain.ErrServerStartTimeout)
}

// An operation error aborts polling immediately.
func TestSpawnServerStopsOnOperationError(t *testing.T) {
	client := &fakeCompute{script: []compute.Operation{
		pending(),
		pending(),
		{ID: "op-create", Status: compute.OperationPending, Error: "QUOTA_EXCEEDED"},
		done(),
	}}
	p, _ := newProvisioner(t, client)

	_, err := p.SpawnServer(context.Background(), spawnReq())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUOTA_EXCEEDED")
	assert.Equal(t, 3, client.pollCount(), "no polls after the operation reported an error")
}

func TestShutdownInstanceMarksRowStopped(t *testing.T) {
	client := &fakeCompute{script: []compute.Operation{done()}}
	p, instanceRepo := newProvisioner(t, client)

	ctx := context.Background()
	inst := &domain.ServerInstance{Name: "match-m1", Region: "europe-west1", Zone: "europe-west1-b", Port: 27015}
	require.NoError(t, instanceRepo.Create(ctx, inst))

	require.NoError(t, p.ShutdownInstance(ctx, "match-m1"))
	assert.Equal(t, []string{"match-m1"}, client.deleted)

	stored, err := instanceRepo.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceStopped, stored.Status)
}
