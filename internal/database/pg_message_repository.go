package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"chatty-server/internal/interfaces"
	"chatty-server/internal/models"
)

// Compile-time check to ensure pgMessageRepository implements MessageRepository
var _ interfaces.MessageRepository = (*pgMessageRepository)(nil)

type pgMessageRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgMessageRepository creates a new PostgreSQL-backed MessageRepository.
func NewPgMessageRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.MessageRepository {
	return &pgMessageRepository{
		db:     db,
		logger: logger.Named("PgMessageRepo"),
	}
}

// messageRow is the flat shape of a hydrated message row.
type messageRow struct {
	ID        uuid.UUID              `db:"id"`
	Content   string                 `db:"content"`
	Priority  models.MessagePriority `db:"priority"`
	CreatedAt time.Time              `db:"created_at"`
	AuthorID  uuid.UUID              `db:"author_id"`
	Username  string                 `db:"username"`
	Role      string                 `db:"role"`
	Avatar    string                 `db:"avatar"`
	IsBanned  bool                   `db:"is_banned"`
}

func (row *messageRow) toMessage() models.Message {
	return models.Message{
		ID:        row.ID,
		Content:   row.Content,
		Priority:  row.Priority,
		CreatedAt: row.CreatedAt,
		AuthorID:  row.AuthorID,
		Author: &models.PublicUser{
			ID:       row.AuthorID,
			Username: row.Username,
			Role:     row.Role,
			Avatar:   row.Avatar,
			IsBanned: row.IsBanned,
		},
	}
}

const hydratedMessageSelect = `SELECT m.id, m.content, m.priority, m.created_at, m.author_id,
       u.username, u.role, u.avatar, u.is_banned
  FROM messages m
  JOIN users u ON u.id = m.author_id`

// likeEscaper neutralizes LIKE metacharacters in user-supplied search terms
// so a search for "100%" matches the literal text.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListMessagesQuery assembles the parameterized listing query. The
// search term and priority only ever travel as bind arguments.
func buildListMessagesQuery(filter models.MessageFilter) (string, []any) {
	query := hydratedMessageSelect
	conds := []string{}
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf(`m.content ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("m.priority = $%d", len(args)))
	}

	if len(conds) > 0 {
		query += "\n WHERE " + strings.Join(conds, " AND ")
	}
	query += "\n ORDER BY m.created_at DESC"
	return query, args
}

// CreateMessage inserts a new message.
func (r *pgMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `INSERT INTO messages (content, priority, author_id)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, msg.Content, msg.Priority, msg.AuthorID).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create message in postgres", zap.Error(err), zap.String("authorID", msg.AuthorID.String()))
		return fmt.Errorf("failed to create message in postgres: %w", err)
	}
	r.logger.Debug("Message created", zap.String("messageID", msg.ID.String()))
	return nil
}

// GetMessageByID retrieves a single hydrated message.
func (r *pgMessageRepository) GetMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := hydratedMessageSelect + "\n WHERE m.id = $1"
	var row messageRow
	err := r.db.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Content, &row.Priority, &row.CreatedAt, &row.AuthorID,
		&row.Username, &row.Role, &row.Avatar, &row.IsBanned,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMessageNotFound
		}
		r.logger.Error("Failed to get message by id from postgres", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get message by id from postgres: %w", err)
	}
	msg := row.toMessage()
	return &msg, nil
}

// ListMessages retrieves hydrated messages newest-first.
func (r *pgMessageRepository) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	query, args := buildListMessagesQuery(filter)
	rows := make([]messageRow, 0)
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list messages from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	messages := make([]models.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].toMessage())
	}
	return messages, nil
}

// DeleteMessage removes a message by id.
func (r *pgMessageRepository) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete message from postgres", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrMessageNotFound
	}
	r.logger.Info("Message deleted", zap.String("messageID", id.String()))
	return nil
}

// GetUserStats aggregates a user's message activity. The aggregation is
// keyed by author id so stored usernames never reach the query text.
func (r *pgMessageRepository) GetUserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	query := `SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM messages WHERE author_id = $1`
	stats := &models.UserStats{UserID: userID}
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&stats.MessageCount, &stats.FirstMessage, &stats.LastMessage)
	if err != nil {
		r.logger.Error("Failed to get user stats from postgres", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}
