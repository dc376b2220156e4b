package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertPost inserts a raw post; an existing id is left untouched
func (s *PostgresStore) UpsertPost(ctx context.Context, post models.RawPost) (bool, error) {
	query := `
		INSERT INTO posts (id, created_time, message, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`

	rowInterface := s.db.QueryRow(ctx, query, post.ID, post.CreatedTime, post.Message, post.FetchedAt)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return false, fmt.Errorf("invalid row type")
	}

	var id string
	if err := row.Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("upsert post %s: %w", post.ID, err)
	}
	return true, nil
}

// QueryPosts retrieves posts matching the query, newest first
func (s *PostgresStore) QueryPosts(ctx context.Context, q models.PostQuery) ([]models.RawPost, error) {
	query := `
		SELECT id, created_time, message, fetched_at
		FROM posts
		WHERE 1=1
	`

	var args []interface{}
	argIndex := 1

	if len(q.IDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argIndex)
		args = append(args, q.IDs)
		argIndex++
	}

	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_time >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND created_time <= $%d", argIndex)
		args = append(args, q.Until)
		argIndex++
	}

	query += " ORDER BY created_time DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	rowsInterface, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var posts []models.RawPost
	for rows.Next() {
		var post models.RawPost
		if err := rows.Scan(&post.ID, &post.CreatedTime, &post.Message, &post.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// GetPost retrieves a single post by id
func (s *PostgresStore) GetPost(ctx context.Context, id string) (*models.RawPost, error) {
	query := `
		SELECT id, created_time, message, fetched_at
		FROM posts
		WHERE id = $1
	`

	rowInterface := s.db.QueryRow(ctx, query, id)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	var post models.RawPost
	err := row.Scan(&post.ID, &post.CreatedTime, &post.Message, &post.FetchedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}

	return &post, nil
}

// DeletePost removes a post by id
func (s *PostgresStore) DeletePost(ctx context.Context, id string) error {
	if err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

// UpsertRide inserts or overwrites a processed ride
func (s *PostgresStore) UpsertRide(ctx context.Context, ride models.ProcessedRide) error {
	query := `
		INSERT INTO processed_rides (
			reference_id, post_status, origin, destination, departure_date,
			seats, cost, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (reference_id) DO UPDATE SET
			post_status = EXCLUDED.post_status,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			departure_date = EXCLUDED.departure_date,
			seats = EXCLUDED.seats,
			cost = EXCLUDED.cost
	`

	err := s.db.Exec(ctx, query,
		ride.ReferenceID, string(ride.PostStatus), ride.Origin, ride.Destination,
		ride.DepartureDate, ride.Seats, ride.Cost, ride.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert ride %s: %w", ride.ReferenceID, err)
	}

	return nil
}

// QueryRides retrieves rides matching the query, newest first
func (s *PostgresStore) QueryRides(ctx context.Context, q models.RideQuery) ([]models.ProcessedRide, error) {
	query := `
		SELECT reference_id, post_status, origin, destination, departure_date,
			   seats, cost, created_at
		FROM processed_rides
		WHERE 1=1
	`

	var args []interface{}
	argIndex := 1

	if len(q.ReferenceIDs) > 0 {
		query += fmt.Sprintf(" AND reference_id = ANY($%d)", argIndex)
		args = append(args, q.ReferenceIDs)
		argIndex++
	}

	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		query += fmt.Sprintf(" AND post_status = ANY($%d)", argIndex)
		args = append(args, statuses)
		argIndex++
	}

	if len(q.Destinations) > 0 {
		query += fmt.Sprintf(" AND destination = ANY($%d)", argIndex)
		args = append(args, q.Destinations)
		argIndex++
	}

	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, q.Until)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	rowsInterface, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}

	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var rides []models.ProcessedRide
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, ride)
	}

	return rides, nil
}

// GetRide retrieves a single ride by reference id
func (s *PostgresStore) GetRide(ctx context.Context, referenceID string) (*models.ProcessedRide, error) {
	query := `
		SELECT reference_id, post_status, origin, destination, departure_date,
			   seats, cost, created_at
		FROM processed_rides
		WHERE reference_id = $1
	`

	rowInterface := s.db.QueryRow(ctx, query, referenceID)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	ride, err := scanRide(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ride, nil
}

// DeleteRide removes a ride by reference id
func (s *PostgresStore) DeleteRide(ctx context.Context, referenceID string) error {
	if err := s.db.Exec(ctx, `DELETE FROM processed_rides WHERE reference_id = $1`, referenceID); err != nil {
		return fmt.Errorf("delete ride %s: %w", referenceID, err)
	}
	return nil
}

// UpsertProfile inserts or updates a rider profile
func (s *PostgresStore) UpsertProfile(ctx context.Context, profile models.RiderProfile) error {
	query := `
		INSERT INTO profiles (id, destination, device_tokens)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			destination = EXCLUDED.destination,
			device_tokens = EXCLUDED.device_tokens
	`

	if err := s.db.Exec(ctx, query, profile.ID, profile.Destination, profile.DeviceTokens); err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return nil
}

// ListProfiles returns every rider profile
func (s *PostgresStore) ListProfiles(ctx context.Context) ([]models.RiderProfile, error) {
	query := `SELECT id, destination, device_tokens FROM profiles ORDER BY id`

	rowsInterface, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var profiles []models.RiderProfile
	for rows.Next() {
		var profile models.RiderProfile
		if err := rows.Scan(&profile.ID, &profile.Destination, &profile.DeviceTokens); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// RemoveToken prunes one device token from a profile; already-absent
// tokens are a no-op at the SQL level
func (s *PostgresStore) RemoveToken(ctx context.Context, profileID, token string) error {
	query := `UPDATE profiles SET device_tokens = array_remove(device_tokens, $2) WHERE id = $1`

	if err := s.db.Exec(ctx, query, profileID, token); err != nil {
		return fmt.Errorf("remove token from profile %s: %w", profileID, err)
	}
	return nil
}

// GetWatermark returns the stored watermark value, empty when unset
func (s *PostgresStore) GetWatermark(ctx context.Context, name string) (string, error) {
	rowInterface := s.db.QueryRow(ctx, `SELECT value FROM watermarks WHERE name = $1`, name)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return "", fmt.Errorf("invalid row type")
	}

	var value string
	if err := row.Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("scan watermark: %w", err)
	}
	return value, nil
}

// SetWatermark stores a watermark value
func (s *PostgresStore) SetWatermark(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO watermarks (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if err := s.db.Exec(ctx, query, name, value); err != nil {
		return fmt.Errorf("set watermark %s: %w", name, err)
	}
	return nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func scanRide(row pgx.Row) (models.ProcessedRide, error) {
	var ride models.ProcessedRide
	var status string
	err := row.Scan(
		&ride.ReferenceID, &status, &ride.Origin, &ride.Destination,
		&ride.DepartureDate, &ride.Seats, &ride.Cost, &ride.CreatedAt,
	)
	if err != nil {
		return ride, err
	}
	ride.PostStatus = models.PostStatus(status)
	return ride, nil
}
