package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vakit-notify/internal/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// SQLStore persists profiles, subscriptions, inbox records, streaks and
// dispatch claims. Queries are written with '?' placeholders and rebound for
// Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// OpenSQL connects with the named driver ("postgres" or "sqlite").
func OpenSQL(dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite prefers a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		_, _ = db.Exec("PRAGMA journal_mode = WAL")
		_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	}
	return NewSQLStore(db, dialect), nil
}

func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// RunMigrations creates tables if they don't exist.
func (s *SQLStore) RunMigrations(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == DialectSQLite {
		schema = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// q rebinds '?' placeholders to $1..$n for Postgres.
func (s *SQLStore) q(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Profile methods

func (s *SQLStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	var city sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id, city, notifications_enabled, updated_at FROM profiles WHERE id = ?`),
		id,
	).Scan(&p.ID, &city, &p.NotificationsEnabled, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, err
	}
	p.City = city.String
	return p, nil
}

func (s *SQLStore) UpsertProfile(ctx context.Context, p models.Profile) error {
	city := sql.NullString{String: strings.TrimSpace(p.City), Valid: strings.TrimSpace(p.City) != ""}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO profiles (id, city, notifications_enabled, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   city = excluded.city,
		   notifications_enabled = excluded.notifications_enabled,
		   updated_at = excluded.updated_at`),
		p.ID, city, p.NotificationsEnabled, s.now(),
	)
	return err
}

func (s *SQLStore) ListOptedInProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, city, notifications_enabled, updated_at FROM profiles WHERE notifications_enabled = ? ORDER BY id`),
		true,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		var city sql.NullString
		if err := rows.Scan(&p.ID, &city, &p.NotificationsEnabled, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.City = city.String
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Push subscription methods

// UpsertSubscription inserts or overwrites the row keyed by endpoint. A
// re-registered endpoint moves to the new user and takes the new keys.
func (s *SQLStore) UpsertSubscription(ctx context.Context, userID, endpoint, p256dh, auth string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO push_subscriptions (endpoint, user_id, p256dh, auth, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (endpoint) DO UPDATE SET
		   user_id = excluded.user_id,
		   p256dh = excluded.p256dh,
		   auth = excluded.auth,
		   updated_at = excluded.updated_at`),
		endpoint, userID, p256dh, auth, now, now,
	)
	return err
}

func (s *SQLStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM push_subscriptions WHERE endpoint = ?`), endpoint)
	return err
}

func (s *SQLStore) ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT user_id, endpoint, p256dh, auth, created_at, updated_at
		 FROM push_subscriptions WHERE user_id = ? ORDER BY created_at, endpoint`),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Notification methods

func (s *SQLStore) AppendNotification(ctx context.Context, rec models.NotificationRecord) (models.NotificationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO notifications (id, user_id, title, body, url, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.Title, rec.Body, rec.URL, rec.Read, rec.CreatedAt,
	)
	if err != nil {
		return models.NotificationRecord{}, err
	}
	return rec, nil
}

// ListNotifications returns the newest records first.
func (s *SQLStore) ListNotifications(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, user_id, title, body, url, read, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id
		 LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.NotificationRecord
	for rows.Next() {
		var r models.NotificationRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.Body, &r.URL, &r.Read, &r.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *SQLStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		s.q(`UPDATE notifications SET read = ? WHERE id = ? AND user_id = ?`),
		true, id, userID,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// PurgeNotifications deletes read records created before cutoff and returns
// how many were removed. Unread records are kept.
func (s *SQLStore) PurgeNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM notifications WHERE read = ? AND created_at < ?`),
		true, cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Streak methods

func (s *SQLStore) GetStreak(ctx context.Context, userID string) (models.StreakState, error) {
	return s.loadStreak(ctx, s.db, userID, false)
}

func (s *SQLStore) UpdateStreak(ctx context.Context, userID string, fn func(models.StreakState) models.StreakState) (models.StreakState, error) {
	var next models.StreakState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.loadStreak(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		next = fn(cur)
		return s.saveStreak(ctx, tx, userID, next)
	})
	if err != nil {
		return models.StreakState{}, err
	}
	return next, nil
}

// loadStreak returns the zero state for users with no row yet.
func (s *SQLStore) loadStreak(ctx context.Context, db execQuerier, userID string, forUpdate bool) (models.StreakState, error) {
	query := `SELECT streak, last_activity_date, freezes, coins FROM streaks WHERE user_id = ?`
	if forUpdate && s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}

	var st models.StreakState
	var last sql.NullString
	err := db.QueryRowContext(ctx, s.q(query), userID).Scan(&st.Streak, &last, &st.Freezes, &st.Coins)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StreakState{}, nil
	}
	if err != nil {
		return models.StreakState{}, err
	}
	if last.Valid && last.String != "" {
		d, err := models.ParseDate(last.String)
		if err != nil {
			return models.StreakState{}, err
		}
		st.LastActivity = d
	}

	rows, err := db.QueryContext(ctx, s.q(`SELECT day FROM streak_activity WHERE user_id = ? ORDER BY day`), userID)
	if err != nil {
		return models.StreakState{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return models.StreakState{}, err
		}
		d, err := models.ParseDate(day)
		if err != nil {
			return models.StreakState{}, err
		}
		st.History = append(st.History, d)
	}
	return st, rows.Err()
}

func (s *SQLStore) saveStreak(ctx context.Context, db execQuerier, userID string, st models.StreakState) error {
	last := sql.NullString{String: st.LastActivity.String(), Valid: !st.LastActivity.IsZero()}
	_, err := db.ExecContext(ctx,
		s.q(`INSERT INTO streaks (user_id, streak, last_activity_date, freezes, coins, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   streak = excluded.streak,
		   last_activity_date = excluded.last_activity_date,
		   freezes = excluded.freezes,
		   coins = excluded.coins,
		   updated_at = excluded.updated_at`),
		userID, st.Streak, last, st.Freezes, st.Coins, s.now(),
	)
	if err != nil {
		return err
	}

	for _, day := range st.History {
		if _, err := db.ExecContext(ctx,
			s.q(`INSERT INTO streak_activity (user_id, day) VALUES (?, ?) ON CONFLICT (user_id, day) DO NOTHING`),
			userID, day.String(),
		); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch claims

// ClaimDispatch inserts key unless an unexpired claim already holds it.
// Expired claims are pruned first.
func (s *SQLStore) ClaimDispatch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()
	claimed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			s.q(`DELETE FROM dispatch_claims WHERE expires_at <= ?`), now.UnixMilli(),
		); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO dispatch_claims (claim_key, expires_at) VALUES (?, ?) ON CONFLICT (claim_key) DO NOTHING`),
			key, now.Add(ttl).UnixMilli(),
		)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		claimed = n == 1
		return nil
	})
	return claimed, err
}
