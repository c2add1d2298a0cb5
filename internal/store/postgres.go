package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const requestColumns = `id, phone, name, city, description, specialization, status,
	claimed_by_id, claimed_by_username, claimed_at, created_at,
	tg_chat_id, tg_message_id, cancel_note`

func (s *PostgresStore) ListRequests(ctx context.Context) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	items := []Request{}
	for rows.Next() {
		item, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetRequest(ctx context.Context, id int64) (Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (s *PostgresStore) InsertRequest(ctx context.Context, in NewRequest) (Request, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO requests (phone, name, city, description, specialization, tg_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns,
		in.Phone, in.Name, in.City, in.Description, string(in.Specialization), in.TgChatID,
	)
	item, err := scanRequest(row)
	if err != nil {
		return Request{}, fmt.Errorf("insert request: %w", err)
	}
	return item, nil
}

// UpdateRequest applies a sparse field set and returns the full merged row.
// A fully empty edit set degenerates to a read.
func (s *PostgresStore) UpdateRequest(ctx context.Context, id int64, edits RequestEdits) (Request, error) {
	assignments := []string{}
	args := []any{}

	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if edits.Phone != nil {
		set("phone", *edits.Phone)
	}
	if edits.Name != nil {
		set("name", *edits.Name)
	}
	if edits.City != nil {
		set("city", *edits.City)
	}
	if edits.Description != nil {
		set("description", *edits.Description)
	}
	if edits.Specialization != nil {
		set("specialization", string(*edits.Specialization))
	}
	if edits.Status != nil {
		set("status", *edits.Status)
	}
	if edits.CancelNote != nil {
		set("cancel_note", *edits.CancelNote)
	}

	if len(assignments) == 0 {
		return s.GetRequest(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE requests SET %s WHERE id = $%d RETURNING `+requestColumns,
		strings.Join(assignments, ", "), len(args))

	item, err := scanRequest(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return Request{}, err
	}
	if err != nil {
		return Request{}, fmt.Errorf("update request: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}
	return affected > 0, nil
}

// SaveChannelMessage records where the request's channel post lives without
// touching any business fields.
func (s *PostgresStore) SaveChannelMessage(ctx context.Context, id int64, messageID int, chatID int64, sender string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE requests SET tg_message_id = $1, tg_chat_id = $2, posted_by = $3 WHERE id = $4
	`, messageID, chatID, sender, id)
	if err != nil {
		return fmt.Errorf("save channel message: %w", err)
	}
	return nil
}

func scanRequest(row interface{ Scan(...any) error }) (Request, error) {
	var item Request
	var claimedByID sql.NullInt64
	var claimedByUsername sql.NullString
	var claimedAt sql.NullTime
	var tgChatID sql.NullInt64
	var tgMessageID sql.NullInt64
	var cancelNote sql.NullString

	err := row.Scan(
		&item.ID, &item.Phone, &item.Name, &item.City, &item.Description,
		&item.Specialization, &item.Status,
		&claimedByID, &claimedByUsername, &claimedAt, &item.CreatedAt,
		&tgChatID, &tgMessageID, &cancelNote,
	)
	if err != nil {
		return Request{}, err
	}

	if claimedByID.Valid {
		item.ClaimedByID = &claimedByID.Int64
	}
	if claimedByUsername.Valid {
		item.ClaimedByUsername = &claimedByUsername.String
	}
	if claimedAt.Valid {
		item.ClaimedAt = &claimedAt.Time
	}
	if tgChatID.Valid {
		item.TgChatID = &tgChatID.Int64
	}
	if tgMessageID.Valid {
		messageID := int(tgMessageID.Int64)
		item.TgMessageID = &messageID
	}
	if cancelNote.Valid {
		item.CancelNote = &cancelNote.String
	}
	return item, nil
}

const specialistColumns = `id, tg_id, username, name, phone, is_approved, specializations`

func (s *PostgresStore) ListSpecialists(ctx context.Context) ([]Specialist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+specialistColumns+` FROM specialists ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list specialists: %w", err)
	}
	defer rows.Close()

	items := []Specialist{}
	for rows.Next() {
		item, err := scanSpecialist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan specialist: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetSpecialist(ctx context.Context, id int64) (Specialist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+specialistColumns+` FROM specialists WHERE id = $1`, id)
	return scanSpecialist(row)
}

func (s *PostgresStore) InsertSpecialist(ctx context.Context, in NewSpecialist) (Specialist, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO specialists (tg_id, username, name, phone, is_approved, specializations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+specialistColumns,
		in.TgID, in.Username, in.Name, in.Phone, in.IsApproved, encodeSpecializations(in.Specializations),
	)
	item, err := scanSpecialist(row)
	if err != nil {
		return Specialist{}, fmt.Errorf("insert specialist: %w", err)
	}
	return item, nil
}

// UpdateSpecialist replaces the full editable field set, as the admin form
// always submits every field.
func (s *PostgresStore) UpdateSpecialist(ctx context.Context, id int64, in NewSpecialist) (Specialist, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE specialists
		SET tg_id = $1, username = $2, name = $3, phone = $4, is_approved = $5, specializations = $6
		WHERE id = $7
		RETURNING `+specialistColumns,
		in.TgID, in.Username, in.Name, in.Phone, in.IsApproved, encodeSpecializations(in.Specializations), id,
	)
	item, err := scanSpecialist(row)
	if err == sql.ErrNoRows {
		return Specialist{}, err
	}
	if err != nil {
		return Specialist{}, fmt.Errorf("update specialist: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteSpecialist(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM specialists WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete specialist: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete specialist: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ApproveSpecialist(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE specialists SET is_approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("approve specialist: %w", err)
	}
	return nil
}

func scanSpecialist(row interface{ Scan(...any) error }) (Specialist, error) {
	var item Specialist
	var tgID sql.NullInt64
	var username sql.NullString
	var phone sql.NullString
	var specializations string

	err := row.Scan(&item.ID, &tgID, &username, &item.Name, &phone, &item.IsApproved, &specializations)
	if err != nil {
		return Specialist{}, err
	}

	if tgID.Valid {
		item.TgID = &tgID.Int64
	}
	if username.Valid {
		item.Username = &username.String
	}
	if phone.Valid {
		item.Phone = &phone.String
	}
	item.Specializations = decodeSpecializations(specializations)
	return item, nil
}
