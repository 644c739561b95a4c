package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"arena-backend/internal/domain"
)

type ServerInstanceRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewServerInstanceRepository(sqlDB *sql.DB, logger zerolog.Logger) *ServerInstanceRepository {
	return &ServerInstanceRepository{db: sqlDB, logger: logger}
}

func (r *ServerInstanceRepository) Create(ctx context.Context, inst *domain.ServerInstance) error {
	if inst.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate instance id: %w", err)
		}
		inst.ID = id
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO server_instances (id, name, provider, region, zone, ip, port, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.Name, inst.Provider, inst.Region, inst.Zone, inst.Address, inst.Port,
		domain.InstanceActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create server instance %s: %w", inst.Name, err)
	}
	inst.Status = domain.InstanceActive
	return nil
}

func (r *ServerInstanceRepository) GetByID(ctx context.Context, id string) (*domain.ServerInstance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, provider, region, zone, ip, port, status, created_at, updated_at
		 FROM server_instances WHERE id = ?`, id)

	var inst domain.ServerInstance
	err := row.Scan(&inst.ID, &inst.Name, &inst.Provider, &inst.Region, &inst.Zone,
		&inst.Address, &inst.Port, &inst.Status, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInstanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *ServerInstanceRepository) MarkStopped(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE server_instances SET status = ?, updated_at = ? WHERE name = ?`,
		domain.InstanceStopped, time.Now(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to mark instance %s stopped: %w", name, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}
