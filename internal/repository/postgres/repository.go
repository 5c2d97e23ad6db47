package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
)

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, google_id, email, name, access_token, refresh_token, token_expiry, active, service_start, setup_status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.Active, &user.ServiceStart, &user.SetupStatus,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			active = EXCLUDED.active,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.Active, user.ServiceStart, user.SetupStatus,
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) FindActive(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE active = TRUE`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET google_id=$1, email=$2, name=$3, access_token=$4,
		refresh_token=$5, token_expiry=$6, active=$7, service_start=$8,
		setup_status=$9, updated_at=NOW() WHERE id=$10`
	_, err := r.db.ExecContext(ctx, query,
		user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.Active, user.ServiceStart, user.SetupStatus,
		user.ID)
	return err
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Postgres Config repository implementation
type PostgresConfigRepository struct {
	db *sql.DB
}

func NewPostgresConfigRepository(db *sql.DB) *PostgresConfigRepository {
	return &PostgresConfigRepository{db: db}
}

func (r *PostgresConfigRepository) Get(ctx context.Context, userID string) (*model.UserConfig, error) {
	query := `
		SELECT user_id, poll_interval_minutes, poll_start_hour, poll_end_hour,
		       autonomy_level, low_confidence_threshold, lookback_hours, timezone, updated_at
		FROM user_configs WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	cfg := &model.UserConfig{}
	err := row.Scan(
		&cfg.UserID, &cfg.PollIntervalMinutes, &cfg.PollStartHour, &cfg.PollEndHour,
		&cfg.AutonomyLevel, &cfg.LowConfidenceThreshold, &cfg.LookbackHours,
		&cfg.Timezone, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return cfg, nil
}

func (r *PostgresConfigRepository) Save(ctx context.Context, cfg *model.UserConfig) error {
	query := `
		INSERT INTO user_configs (user_id, poll_interval_minutes, poll_start_hour, poll_end_hour,
			autonomy_level, low_confidence_threshold, lookback_hours, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			poll_interval_minutes = EXCLUDED.poll_interval_minutes,
			poll_start_hour = EXCLUDED.poll_start_hour,
			poll_end_hour = EXCLUDED.poll_end_hour,
			autonomy_level = EXCLUDED.autonomy_level,
			low_confidence_threshold = EXCLUDED.low_confidence_threshold,
			lookback_hours = EXCLUDED.lookback_hours,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		cfg.UserID, cfg.PollIntervalMinutes, cfg.PollStartHour, cfg.PollEndHour,
		cfg.AutonomyLevel, cfg.LowConfidenceThreshold, cfg.LookbackHours, cfg.Timezone)
	return err
}

// Postgres Queue repository implementation
type PostgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) *PostgresQueueRepository {
	return &PostgresQueueRepository{db: db}
}

const queueColumns = `id, user_id, gmail_id, thread_id, sender, subject, snippet, body, classification, draft_reply, status, action_taken, routing_reason, created_at, resolved_at`

func scanQueueItem(row interface{ Scan(...any) error }) (*model.QueueItem, error) {
	item := &model.QueueItem{}
	var classification []byte
	err := row.Scan(
		&item.ID, &item.UserID, &item.GmailID, &item.ThreadID,
		&item.Sender, &item.Subject, &item.Snippet, &item.Body,
		&classification, &item.DraftReply, &item.Status,
		&item.ActionTaken, &item.RoutingReason,
		&item.CreatedAt, &item.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if len(classification) > 0 {
		c := &model.Classification{}
		if err := json.Unmarshal(classification, c); err != nil {
			return nil, fmt.Errorf("decode classification: %w", err)
		}
		item.Classification = c
	}
	return item, nil
}

func (r *PostgresQueueRepository) Create(ctx context.Context, item *model.QueueItem) error {
	var classification []byte
	if item.Classification != nil {
		var err error
		classification, err = json.Marshal(item.Classification)
		if err != nil {
			return fmt.Errorf("encode classification: %w", err)
		}
	}

	query := `
		INSERT INTO queue_items (` + queueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.GmailID, item.ThreadID,
		item.Sender, item.Subject, item.Snippet, item.Body,
		classification, item.DraftReply, item.Status,
		item.ActionTaken, item.RoutingReason,
		item.CreatedAt, item.ResolvedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperr.Dedup(item.GmailID)
		}
		return err
	}
	return nil
}

func (r *PostgresQueueRepository) FindByID(ctx context.Context, id string) (*model.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE id = $1`
	return scanQueueItem(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresQueueRepository) FindByUser(ctx context.Context, userID string, status model.QueueStatus) ([]*model.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresQueueRepository) Exists(ctx context.Context, userID, gmailID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM queue_items WHERE user_id = $1 AND gmail_id = $2)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, gmailID).Scan(&exists)
	return exists, err
}

func (r *PostgresQueueRepository) Update(ctx context.Context, item *model.QueueItem) error {
	var classification []byte
	if item.Classification != nil {
		var err error
		classification, err = json.Marshal(item.Classification)
		if err != nil {
			return fmt.Errorf("encode classification: %w", err)
		}
	}

	// The status predicate makes terminal-state immutability atomic: two
	// writers racing on the same pending item cannot both resolve it.
	query := `
		UPDATE queue_items SET classification=$1, draft_reply=$2, status=$3,
		action_taken=$4, routing_reason=$5, resolved_at=$6
		WHERE id=$7 AND status NOT IN ('sent', 'discarded')`
	res, err := r.db.ExecContext(ctx, query,
		classification, item.DraftReply, item.Status,
		item.ActionTaken, item.RoutingReason, item.ResolvedAt,
		item.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var status string
		err := r.db.QueryRowContext(ctx, "SELECT status FROM queue_items WHERE id=$1", item.ID).Scan(&status)
		if err == sql.ErrNoRows {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return apperr.Validation("status", fmt.Sprintf("item is %s and cannot be updated", status))
	}
	return nil
}

// Postgres Activity repository implementation
type PostgresActivityRepository struct {
	db *sql.DB
}

func NewPostgresActivityRepository(db *sql.DB) *PostgresActivityRepository {
	return &PostgresActivityRepository{db: db}
}

func (r *PostgresActivityRepository) Append(ctx context.Context, event *model.ActivityEvent) error {
	query := `
		INSERT INTO activity_log (id, user_id, type, gmail_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.Type, event.GmailID, event.Detail, event.CreatedAt)
	return err
}

func (r *PostgresActivityRepository) Recent(ctx context.Context, userID string, limit int) ([]*model.ActivityEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, type, gmail_id, detail, created_at
		FROM activity_log WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.ActivityEvent
	for rows.Next() {
		event := &model.ActivityEvent{}
		err := rows.Scan(
			&event.ID, &event.UserID, &event.Type,
			&event.GmailID, &event.Detail, &event.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Postgres Contact repository implementation
type PostgresContactRepository struct {
	db *sql.DB
}

func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

func (r *PostgresContactRepository) Upsert(ctx context.Context, contact *model.Contact) error {
	query := `
		INSERT INTO contacts (id, user_id, email, name, message_count, last_seen, created_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7)
		ON CONFLICT (user_id, email) DO UPDATE SET
			name = EXCLUDED.name,
			message_count = EXCLUDED.message_count,
			last_seen = EXCLUDED.last_seen`
	_, err := r.db.ExecContext(ctx, query,
		contact.ID, contact.UserID, contact.Email, contact.Name,
		contact.MessageCount, contact.LastSeen, contact.CreatedAt)
	return err
}

func (r *PostgresContactRepository) FindByUser(ctx context.Context, userID string) ([]*model.Contact, error) {
	query := `
		SELECT id, user_id, email, name, message_count, last_seen, created_at
		FROM contacts WHERE user_id = $1 ORDER BY message_count DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*model.Contact
	for rows.Next() {
		contact := &model.Contact{}
		err := rows.Scan(
			&contact.ID, &contact.UserID, &contact.Email, &contact.Name,
			&contact.MessageCount, &contact.LastSeen, &contact.CreatedAt)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *PostgresContactRepository) FindByEmail(ctx context.Context, userID, email string) (*model.Contact, error) {
	query := `
		SELECT id, user_id, email, name, message_count, last_seen, created_at
		FROM contacts WHERE user_id = $1 AND email = LOWER($2)`
	row := r.db.QueryRowContext(ctx, query, userID, email)

	contact := &model.Contact{}
	err := row.Scan(
		&contact.ID, &contact.UserID, &contact.Email, &contact.Name,
		&contact.MessageCount, &contact.LastSeen, &contact.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return contact, nil
}

func (r *PostgresContactRepository) Delete(ctx context.Context, userID, email string) error {
	query := `DELETE FROM contacts WHERE user_id = $1 AND email = LOWER($2)`
	res, err := r.db.ExecContext(ctx, query, userID, email)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *PostgresContactRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM contacts WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// Postgres Profile repository implementation
type PostgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(db *sql.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) Get(ctx context.Context, userID string) (*model.VoiceProfile, error) {
	query := `
		SELECT user_id, tone, greeting, sign_off, traits, sample_count, updated_at
		FROM voice_profiles WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	profile := &model.VoiceProfile{}
	var traits []byte
	err := row.Scan(
		&profile.UserID, &profile.Tone, &profile.Greeting, &profile.SignOff,
		&traits, &profile.SampleCount, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if len(traits) > 0 {
		if err := json.Unmarshal(traits, &profile.Traits); err != nil {
			return nil, fmt.Errorf("decode traits: %w", err)
		}
	}
	return profile, nil
}

func (r *PostgresProfileRepository) Save(ctx context.Context, profile *model.VoiceProfile) error {
	traits, err := json.Marshal(profile.Traits)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}

	query := `
		INSERT INTO voice_profiles (user_id, tone, greeting, sign_off, traits, sample_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			tone = EXCLUDED.tone,
			greeting = EXCLUDED.greeting,
			sign_off = EXCLUDED.sign_off,
			traits = EXCLUDED.traits,
			sample_count = EXCLUDED.sample_count,
			updated_at = NOW()`
	_, err = r.db.ExecContext(ctx, query,
		profile.UserID, profile.Tone, profile.Greeting, profile.SignOff,
		traits, profile.SampleCount)
	return err
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMP,
			active BOOLEAN DEFAULT TRUE,
			service_start TIMESTAMP NOT NULL,
			setup_status VARCHAR(32) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_configs (
			user_id VARCHAR(255) PRIMARY KEY,
			poll_interval_minutes INT NOT NULL,
			poll_start_hour INT NOT NULL,
			poll_end_hour INT NOT NULL,
			autonomy_level INT NOT NULL,
			low_confidence_threshold DOUBLE PRECISION NOT NULL,
			lookback_hours INT NOT NULL,
			timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queue_items (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			gmail_id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255),
			sender TEXT,
			subject TEXT,
			snippet TEXT,
			body TEXT,
			classification JSONB,
			draft_reply TEXT,
			status VARCHAR(32) NOT NULL,
			action_taken VARCHAR(32),
			routing_reason TEXT,
			created_at TIMESTAMP NOT NULL,
			resolved_at TIMESTAMP,
			UNIQUE (user_id, gmail_id)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			type VARCHAR(64) NOT NULL,
			gmail_id VARCHAR(255),
			detail TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			email VARCHAR(320) NOT NULL,
			name VARCHAR(255),
			message_count INT NOT NULL DEFAULT 0,
			last_seen TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, email)
		)`,
		`CREATE TABLE IF NOT EXISTS voice_profiles (
			user_id VARCHAR(255) PRIMARY KEY,
			tone TEXT,
			greeting TEXT,
			sign_off TEXT,
			traits JSONB,
			sample_count INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_items_user_status ON queue_items (user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_log_user_created ON activity_log (user_id, created_at DESC)`,
	}

	for _, table := range tables {
		_, err := db.Exec(table)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
