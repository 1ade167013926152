// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OwnershipStore is the relational surface the join layer consumes.
type OwnershipStore interface {
	FindAllOwnership(ctx context.Context, filter OwnershipFilter) ([]OwnershipRecord, error)
}

// Relational schema: parcela ownership rows referencing the user/person/role
// hierarchy, plus the audit log table. parcela_mongo_id holds the document
// store's storage id for the linked sensor reading; it is free-form text and
// may dangle, the join layer tolerates that.
const ownershipSchemaSQL = `
CREATE TABLE IF NOT EXISTS roles (
    id       BIGSERIAL PRIMARY KEY,
    nombre   TEXT NOT NULL UNIQUE,
    borrado  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS personas (
    id       BIGSERIAL PRIMARY KEY,
    nombre   TEXT NOT NULL,
    apellido TEXT NOT NULL DEFAULT '',
    borrado  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS usuarios (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    id_role       BIGINT REFERENCES roles(id),
    id_persona    BIGINT REFERENCES personas(id),
    borrado       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS parcelas (
    id               BIGSERIAL PRIMARY KEY,
    nombre           TEXT NOT NULL,
    parcela_mongo_id TEXT,
    id_usuario       BIGINT NOT NULL REFERENCES usuarios(id),
    borrado          BOOLEAN NOT NULL DEFAULT FALSE,
    fecha_creacion   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS logs (
    id          BIGSERIAL PRIMARY KEY,
    id_usuario  BIGINT REFERENCES usuarios(id),
    accion      TEXT NOT NULL,
    descripcion TEXT NOT NULL DEFAULT '',
    fecha       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_parcelas_usuario ON parcelas (id_usuario) WHERE NOT borrado;
CREATE INDEX IF NOT EXISTS idx_logs_usuario ON logs (id_usuario);
`

// CreateOwnershipInput holds the fields required to create a parcela row.
type CreateOwnershipInput struct {
	Nombre           string
	SensorReadingRef string
	OwnerUserID      int64
}

// OwnershipPatch is a partial update to a parcela row.
type OwnershipPatch struct {
	Nombre           *string
	SensorReadingRef *string
	OwnerUserID      *int64
}

// PGOwnershipStore implements OwnershipStore over a Postgres pool.
type PGOwnershipStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGOwnershipStore creates an ownership store and ensures its schema.
func NewPGOwnershipStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PGOwnershipStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := &PGOwnershipStore{pool: pool, logger: logger}
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, ownershipSchemaSQL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("initialize ownership schema: %w", err)
	}
	logger.Debug("Ownership schema initialized")
	return store, nil
}

const ownershipSelectSQL = `
SELECT p.id, p.nombre, COALESCE(p.parcela_mongo_id, ''), p.id_usuario, p.borrado, p.fecha_creacion,
       u.id, u.username, u.email,
       COALESCE(pe.nombre, ''), COALESCE(pe.apellido, ''), COALESCE(r.nombre, '')
FROM parcelas p
JOIN usuarios u ON u.id = p.id_usuario
LEFT JOIN personas pe ON pe.id = u.id_persona
LEFT JOIN roles r ON r.id = u.id_role
`

func scanOwnershipRows(rows pgx.Rows) ([]OwnershipRecord, error) {
	var records []OwnershipRecord
	for rows.Next() {
		var (
			rec   OwnershipRecord
			owner Responsable
		)
		err := rows.Scan(
			&rec.ID, &rec.Nombre, &rec.SensorReadingRef, &rec.OwnerUserID, &rec.Borrado, &rec.CreatedAt,
			&owner.UserID, &owner.Username, &owner.Email,
			&owner.Nombre, &owner.Apellido, &owner.Rol,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ownership row: %w", err)
		}
		rec.Owner = &owner
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ownership rows: %w", err)
	}
	return records, nil
}

// FindAllOwnership returns parcela rows with their nested owner identity,
// newest first. Ordering includes the id as a tiebreaker so pagination over
// unchanged data is stable.
func (s *PGOwnershipStore) FindAllOwnership(ctx context.Context, filter OwnershipFilter) ([]OwnershipRecord, error) {
	query := ownershipSelectSQL + " WHERE 1=1"
	var args []any
	if !filter.IncludeDeleted {
		query += " AND NOT p.borrado"
	}
	if filter.OwnerUserID != 0 {
		args = append(args, filter.OwnerUserID)
		query += fmt.Sprintf(" AND p.id_usuario = $%d", len(args))
	}
	if filter.NombreContains != "" {
		args = append(args, "%"+filter.NombreContains+"%")
		query += fmt.Sprintf(" AND p.nombre ILIKE $%d", len(args))
	}
	query += " ORDER BY p.fecha_creacion DESC, p.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ownership records: %w", err)
	}
	defer rows.Close()
	return scanOwnershipRows(rows)
}

// GetByID returns one parcela row including soft-deleted ones; callers that
// must hide deleted rows check Borrado themselves.
func (s *PGOwnershipStore) GetByID(ctx context.Context, id int64) (*OwnershipRecord, error) {
	rows, err := s.pool.Query(ctx, ownershipSelectSQL+" WHERE p.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("query ownership record %d: %w", id, err)
	}
	defer rows.Close()
	records, err := scanOwnershipRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: parcela %d", ErrNotFound, id)
	}
	return &records[0], nil
}

// GetByUsuario returns the non-deleted parcelas owned by a user.
func (s *PGOwnershipStore) GetByUsuario(ctx context.Context, userID int64) ([]OwnershipRecord, error) {
	return s.FindAllOwnership(ctx, OwnershipFilter{OwnerUserID: userID})
}

// SearchByName returns non-deleted parcelas whose name contains the fragment.
func (s *PGOwnershipStore) SearchByName(ctx context.Context, nombre string) ([]OwnershipRecord, error) {
	return s.FindAllOwnership(ctx, OwnershipFilter{NombreContains: nombre})
}

// Create inserts a parcela row and returns it with the owner populated.
func (s *PGOwnershipStore) Create(ctx context.Context, input CreateOwnershipInput) (*OwnershipRecord, error) {
	if input.Nombre == "" {
		return nil, fmt.Errorf("%w: nombre is required", ErrInvalidInput)
	}
	if input.SensorReadingRef != "" {
		if err := ValidateObjectID(input.SensorReadingRef); err != nil {
			return nil, err
		}
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO parcelas (nombre, parcela_mongo_id, id_usuario) VALUES ($1, NULLIF($2, ''), $3) RETURNING id`,
		input.Nombre, input.SensorReadingRef, input.OwnerUserID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create parcela: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update applies a partial update to a parcela row.
func (s *PGOwnershipStore) Update(ctx context.Context, id int64, patch OwnershipPatch) (*OwnershipRecord, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Borrado {
		return nil, fmt.Errorf("%w: parcela %d", ErrNotFound, id)
	}
	if patch.SensorReadingRef != nil && *patch.SensorReadingRef != "" {
		if err := ValidateObjectID(*patch.SensorReadingRef); err != nil {
			return nil, err
		}
	}

	set := "SET id = id"
	var args []any
	if patch.Nombre != nil {
		args = append(args, *patch.Nombre)
		set += fmt.Sprintf(", nombre = $%d", len(args))
	}
	if patch.SensorReadingRef != nil {
		args = append(args, *patch.SensorReadingRef)
		set += fmt.Sprintf(", parcela_mongo_id = NULLIF($%d, '')", len(args))
	}
	if patch.OwnerUserID != nil {
		args = append(args, *patch.OwnerUserID)
		set += fmt.Sprintf(", id_usuario = $%d", len(args))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE parcelas %s WHERE id = $%d", set, len(args))
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update parcela %d: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

// SoftDelete marks a parcela row deleted.
func (s *PGOwnershipStore) SoftDelete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE parcelas SET borrado = TRUE WHERE id = $1 AND NOT borrado`, id)
	if err != nil {
		return fmt.Errorf("soft-delete parcela %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: parcela %d", ErrNotFound, id)
	}
	return nil
}

// HardDelete removes a parcela row permanently (administrative only).
func (s *PGOwnershipStore) HardDelete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM parcelas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("hard-delete parcela %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: parcela %d", ErrNotFound, id)
	}
	return nil
}

// InsertAuditLog appends an entry to the audit log table.
func (s *PGOwnershipStore) InsertAuditLog(ctx context.Context, userID int64, accion, descripcion string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO logs (id_usuario, accion, descripcion) VALUES (NULLIF($1, 0), $2, $3)`,
		userID, accion, descripcion)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns the newest audit log entries, up to limit.
func (s *PGOwnershipStore) ListAuditLogs(ctx context.Context, limit int) ([]AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(id_usuario, 0), accion, descripcion, fecha
		 FROM logs ORDER BY fecha DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Accion, &e.Descripcion, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit log rows: %w", err)
	}
	return entries, nil
}
