package repository

import (
	"context"
	"database/sql"
	"fmt"

	"seal-telemetry/internal/models"
	"seal-telemetry/pkg/database"
	"seal-telemetry/pkg/logging"
	"seal-telemetry/pkg/metrics"
)

// DeploymentRepository provides read access to the reference
// deployment-metadata table. The pipeline treats the store as an
// external, read-only collaborator; UpsertDeployment exists for the
// migrate command's seed loading only.
type DeploymentRepository interface {
	ListDeployments(ctx context.Context) ([]*models.DeploymentMetadata, error)
	GetDeployment(ctx context.Context, deployID string) (*models.DeploymentMetadata, error)
	UpsertDeployment(ctx context.Context, meta *models.DeploymentMetadata) error
	HealthCheck(ctx context.Context) error
}

// NotFoundError indicates a requested deployment does not exist
type NotFoundError struct {
	DeployID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("deployment not found: %s", e.DeployID)
}

// deploymentRepository implements DeploymentRepository
type deploymentRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDeploymentRepository creates a new deployment repository
func NewDeploymentRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) DeploymentRepository {
	return &deploymentRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListDeployments returns every row of the deployment metadata table,
// ordered by deployment id for deterministic downstream processing.
func (r *deploymentRepository) ListDeployments(ctx context.Context) ([]*models.DeploymentMetadata, error) {
	query := `
		SELECT deploy_id, deploy_start, deploy_end, age_class, sex, created_at
		FROM deployments
		ORDER BY deploy_id
	`

	var deployments []*models.DeploymentMetadata
	if err := r.db.SelectContext(ctx, "list_deployments", &deployments, query); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_LIST_DEPLOYMENTS] Deployments loaded", logging.Fields{
		"count": len(deployments),
	})

	return deployments, nil
}

// GetDeployment retrieves one deployment by id
func (r *deploymentRepository) GetDeployment(ctx context.Context, deployID string) (*models.DeploymentMetadata, error) {
	query := `
		SELECT deploy_id, deploy_start, deploy_end, age_class, sex, created_at
		FROM deployments
		WHERE deploy_id = $1
	`

	var meta models.DeploymentMetadata
	err := r.db.GetContext(ctx, "get_deployment", &meta, query, deployID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{DeployID: deployID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	return &meta, nil
}

// UpsertDeployment inserts or updates one deployment metadata row
func (r *deploymentRepository) UpsertDeployment(ctx context.Context, meta *models.DeploymentMetadata) error {
	query := `
		INSERT INTO deployments (deploy_id, deploy_start, deploy_end, age_class, sex, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (deploy_id) DO UPDATE SET
			deploy_start = EXCLUDED.deploy_start,
			deploy_end   = EXCLUDED.deploy_end,
			age_class    = EXCLUDED.age_class,
			sex          = EXCLUDED.sex
	`

	_, err := r.db.ExecContext(ctx, "upsert_deployment", query,
		meta.DeployID,
		meta.DeployStart,
		meta.DeployEnd,
		meta.AgeClass,
		meta.Sex,
		meta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deployment: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_DEPLOYMENT] Deployment upserted", logging.Fields{
		"deploy_id": meta.DeployID,
	})

	return nil
}

// HealthCheck verifies database connectivity
func (r *deploymentRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
