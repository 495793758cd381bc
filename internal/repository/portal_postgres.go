package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"homecare/portal/internal/models"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT id, email, name, role FROM portal_users WHERE id = $1
	`

	var user models.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *PostgresStore) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	const query = `
		UPDATE portal_users SET role = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, role)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

const carePlanColumns = `id, client_id, title, description, status, progress, next_review, milestones, services`

func scanCarePlan(row pgx.Row) (models.CarePlan, error) {
	var (
		plan       models.CarePlan
		milestones []byte
		services   []byte
	)
	if err := row.Scan(
		&plan.ID,
		&plan.ClientID,
		&plan.Title,
		&plan.Description,
		&plan.Status,
		&plan.Progress,
		&plan.NextReview,
		&milestones,
		&services,
	); err != nil {
		return models.CarePlan{}, err
	}
	if err := json.Unmarshal(milestones, &plan.Milestones); err != nil {
		return models.CarePlan{}, fmt.Errorf("decode milestones: %w", err)
	}
	if err := json.Unmarshal(services, &plan.Services); err != nil {
		return models.CarePlan{}, fmt.Errorf("decode services: %w", err)
	}
	return plan, nil
}

func (r *PostgresStore) ListCarePlans(ctx context.Context, clientID string) ([]models.CarePlan, error) {
	query := `SELECT ` + carePlanColumns + ` FROM care_plans WHERE ($1 = '' OR client_id = $1) ORDER BY id`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]models.CarePlan, 0)
	for rows.Next() {
		plan, err := scanCarePlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *PostgresStore) GetCarePlan(ctx context.Context, id string) (models.CarePlan, error) {
	query := `SELECT ` + carePlanColumns + ` FROM care_plans WHERE id = $1`

	plan, err := scanCarePlan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CarePlan{}, ErrCarePlanNotFound
		}
		return models.CarePlan{}, err
	}
	return plan, nil
}

func (r *PostgresStore) CreateServiceRequest(ctx context.Context, req models.ServiceRequest) error {
	const query = `
		INSERT INTO service_requests (
			id, client_id, title, description, category, priority, status, requested_date, assigned_to, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.ClientID,
		req.Title,
		req.Description,
		req.Category,
		req.Priority,
		req.Status,
		req.RequestedDate,
		req.AssignedTo,
		req.CreatedAt,
	)
	return err
}

func (r *PostgresStore) ListServiceRequests(ctx context.Context, clientID string) ([]models.ServiceRequest, error) {
	const query = `
		SELECT id, client_id, title, description, category, priority, status, requested_date, assigned_to, created_at
		FROM service_requests WHERE client_id = $1 ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ServiceRequest, 0)
	for rows.Next() {
		var req models.ServiceRequest
		if err := rows.Scan(
			&req.ID,
			&req.ClientID,
			&req.Title,
			&req.Description,
			&req.Category,
			&req.Priority,
			&req.Status,
			&req.RequestedDate,
			&req.AssignedTo,
			&req.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *PostgresStore) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	return r.getProfile(ctx, r.pool, userID, false)
}

func (r *PostgresStore) getProfile(ctx context.Context, q rowQuerier, userID string, forUpdate bool) (models.Profile, error) {
	query := `
		SELECT user_id, first_name, last_name, email, phone, fields, updated_at
		FROM profiles WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		p      models.Profile
		fields []byte
	)
	if err := q.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&fields,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	if err := json.Unmarshal(fields, &p.Fields); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile fields: %w", err)
	}
	return p, nil
}

// UpdateProfile merges fields inside a transaction so concurrent edits of
// different keys do not overwrite each other.
func (r *PostgresStore) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (models.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	defer tx.Rollback(ctx)

	p, err := r.getProfile(ctx, tx, userID, true)
	if err != nil {
		return models.Profile{}, err
	}
	applyProfileFields(&p, fields)

	encoded, err := json.Marshal(p.Fields)
	if err != nil {
		return models.Profile{}, fmt.Errorf("encode profile fields: %w", err)
	}

	const update = `
		UPDATE profiles
		SET first_name = $2, last_name = $3, email = $4, phone = $5, fields = $6, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`
	if err := tx.QueryRow(ctx, update, userID, p.FirstName, p.LastName, p.Email, p.Phone, encoded).Scan(&p.UpdatedAt); err != nil {
		return models.Profile{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func (r *PostgresStore) CreateInterview(ctx context.Context, interview models.Interview) error {
	const query = `
		INSERT INTO interviews (event_id, client_id, caregiver_id, scheduled_at) VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, interview.EventID, interview.ClientID, interview.CaregiverID, interview.Datetime)
	return err
}

func (r *PostgresStore) SaveDocument(ctx context.Context, doc models.Document) error {
	const query = `
		INSERT INTO documents (id, owner_id, filename, mime_type, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query, doc.ID, doc.OwnerID, doc.Filename, doc.MimeType, doc.ObjectKey, doc.CreatedAt)
	return err
}
