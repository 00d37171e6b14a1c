package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"achievehub/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")

	// ErrDuplicateEmail surfaces the users.email uniqueness constraint.
	// Concurrent registrations race on the constraint, not in application
	// code, so the loser always gets this error.
	ErrDuplicateEmail = errors.New("duplicate_email")
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Users

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return user, err
}

func (s *Store) GetUserByID(ctx context.Context, userID int64) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash, role string) (model.User, error) {
	user := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, name, email, passwordHash, role)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, userID int64, role string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, role, created_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// EnsureAdmin inserts the bootstrap admin account. It is a no-op when the
// email is already registered, so restarting the server is safe.
func (s *Store) EnsureAdmin(ctx context.Context, name, email, passwordHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, name, email, passwordHash, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Achievements

func (s *Store) ListAchievements(ctx context.Context, userID int64) ([]model.Achievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, description, category, status, verified_by, created_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAchievements(rows)
}

func (s *Store) ListVerifiedAchievements(ctx context.Context, userID int64) ([]model.Achievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, description, category, status, verified_by, created_at
		FROM achievements
		WHERE user_id = $1 AND status = 'verified'
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAchievements(rows)
}

func (s *Store) CreateAchievement(ctx context.Context, userID int64, title, description, category string) (model.Achievement, error) {
	achievement := model.Achievement{
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      model.StatusPending,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO achievements (user_id, title, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, userID, title, description, category)
	if err := row.Scan(&achievement.ID, &achievement.CreatedAt); err != nil {
		return model.Achievement{}, err
	}
	return achievement, nil
}

func (s *Store) UpdateAchievement(ctx context.Context, achievementID, userID int64, title, description, category string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE achievements
		SET title = $1, description = $2, category = $3
		WHERE id = $4 AND user_id = $5
	`, title, description, category, achievementID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteAchievement(ctx context.Context, achievementID, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM achievements
		WHERE id = $1 AND user_id = $2
	`, achievementID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// VerifyAchievement marks the achievement verified and notifies its owner
// in a single transaction, so a verified row without a notification can
// never be observed.
func (s *Store) VerifyAchievement(ctx context.Context, achievementID, adminID int64) (int64, error) {
	var ownerID int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE achievements
			SET status = 'verified', verified_by = $1
			WHERE id = $2
			RETURNING user_id
		`, adminID, achievementID)
		if err := row.Scan(&ownerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO notifications (user_id, title, message)
			VALUES ($1, $2, $3)
		`, ownerID, "Achievement Verified", "Your achievement has been verified by an administrator")
		return err
	})
	return ownerID, err
}

func (s *Store) ListPendingAchievements(ctx context.Context) ([]model.PendingAchievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.user_id, a.title, a.description, a.category, a.status, a.verified_by, a.created_at,
		       u.name, u.email
		FROM achievements a
		JOIN users u ON a.user_id = u.id
		WHERE a.status = 'pending'
		ORDER BY a.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := []model.PendingAchievement{}
	for rows.Next() {
		var entry model.PendingAchievement
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Title,
			&entry.Description,
			&entry.Category,
			&entry.Status,
			&entry.VerifiedBy,
			&entry.CreatedAt,
			&entry.UserName,
			&entry.UserEmail,
		); err != nil {
			return nil, err
		}
		pending = append(pending, entry)
	}
	return pending, rows.Err()
}

// Skills

func (s *Store) ListSkills(ctx context.Context, userID int64) ([]model.Skill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, level, created_at
		FROM skills
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := []model.Skill{}
	for rows.Next() {
		var skill model.Skill
		if err := rows.Scan(&skill.ID, &skill.UserID, &skill.Name, &skill.Level, &skill.CreatedAt); err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

// ReplaceSkills swaps the user's whole skill list in one transaction.
func (s *Store) ReplaceSkills(ctx context.Context, userID int64, skills []model.Skill) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM skills WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, skill := range skills {
			if _, err := tx.Exec(ctx, `
				INSERT INTO skills (user_id, name, level)
				VALUES ($1, $2, $3)
			`, userID, skill.Name, skill.Level); err != nil {
				return err
			}
		}
		return nil
	})
}

// Notifications

func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var notification model.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Title,
			&notification.Message,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, notificationID, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE read = true AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Stats

func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM achievements),
			(SELECT COUNT(*) FROM achievements WHERE status = 'pending')
	`)
	if err := row.Scan(&stats.TotalUsers, &stats.TotalAchievements, &stats.PendingVerifications); err != nil {
		return model.Stats{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT a.title, u.name, a.created_at
		FROM achievements a
		JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC
		LIMIT 10
	`)
	if err != nil {
		return model.Stats{}, err
	}
	defer rows.Close()

	stats.RecentActivities = []model.Activity{}
	for rows.Next() {
		activity := model.Activity{Type: "achievement"}
		if err := rows.Scan(&activity.Title, &activity.UserName, &activity.CreatedAt); err != nil {
			return model.Stats{}, err
		}
		stats.RecentActivities = append(stats.RecentActivities, activity)
	}
	return stats, rows.Err()
}

func scanAchievements(rows pgx.Rows) ([]model.Achievement, error) {
	achievements := []model.Achievement{}
	for rows.Next() {
		var achievement model.Achievement
		if err := rows.Scan(
			&achievement.ID,
			&achievement.UserID,
			&achievement.Title,
			&achievement.Description,
			&achievement.Category,
			&achievement.Status,
			&achievement.VerifiedBy,
			&achievement.CreatedAt,
		); err != nil {
			return nil, err
		}
		achievements = append(achievements, achievement)
	}
	return achievements, rows.Err()
}
