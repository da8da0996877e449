package schemas

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldline/curator/pkg/pagination"
	"github.com/fieldline/curator/pkg/query"
	"github.com/fieldline/curator/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a field schema repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "schemas"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[FieldSchema], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "DocumentType", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count schemas: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSchema)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*FieldSchema, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSchema)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) FindActive(ctx context.Context, documentType string) (*FieldSchema, error) {
	active := true
	q, args := query.NewBuilder(projection).
		WhereEquals("DocumentType", &documentType).
		WhereEquals("Active", &active).
		BuildSingleOrNull()

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSchema)
	if err != nil {
		return nil, repository.MapError(err, ErrNoActive, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*FieldSchema, error) {
	if err := validateSchema(cmd.DocumentType, cmd.Fields, cmd.ConfidenceFloor); err != nil {
		return nil, err
	}

	fields, err := json.Marshal(cmd.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	q := `
		INSERT INTO field_schemas(document_type, fields, confidence_floor, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_type, fields, confidence_floor, description, active`

	args := []any{cmd.DocumentType, fields, cmd.ConfidenceFloor, cmd.Description}

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (FieldSchema, error) {
		return repository.QueryOne(ctx, tx, q, args, scanSchema)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema created", "id", s.ID, "document_type", s.DocumentType)
	return &s, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*FieldSchema, error) {
	if err := validateSchema(cmd.DocumentType, cmd.Fields, cmd.ConfidenceFloor); err != nil {
		return nil, err
	}

	fields, err := json.Marshal(cmd.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	q := `
		UPDATE field_schemas
		SET document_type = $1, fields = $2, confidence_floor = $3, description = $4
		WHERE id = $5
		RETURNING id, document_type, fields, confidence_floor, description, active`

	args := []any{cmd.DocumentType, fields, cmd.ConfidenceFloor, cmd.Description, id}

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (FieldSchema, error) {
		return repository.QueryOne(ctx, tx, q, args, scanSchema)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema updated", "id", s.ID, "document_type", s.DocumentType)
	return &s, nil
}

func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*FieldSchema, error) {
	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (FieldSchema, error) {
		findQ, findArgs := query.NewBuilder(projection).BuildSingle("ID", id)
		target, err := repository.QueryOne(ctx, tx, findQ, findArgs, scanSchema)
		if err != nil {
			return FieldSchema{}, err
		}

		_, err = tx.ExecContext(
			ctx,
			"UPDATE field_schemas SET active = false WHERE document_type = $1 AND active = true",
			target.DocumentType,
		)
		if err != nil {
			return FieldSchema{}, fmt.Errorf("deactivate current: %w", err)
		}

		activateQ := `
			UPDATE field_schemas SET active = true
			WHERE id = $1
			RETURNING id, document_type, fields, confidence_floor, description, active`

		return repository.QueryOne(ctx, tx, activateQ, []any{id}, scanSchema)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema activated", "id", s.ID, "document_type", s.DocumentType)
	return &s, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM field_schemas WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema deleted", "id", id)
	return nil
}

func validateSchema(documentType string, fields []FieldSpec, floor float64) error {
	if strings.TrimSpace(documentType) == "" {
		return fmt.Errorf("%w: document_type required", ErrInvalidSchema)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one field required", ErrInvalidSchema)
	}
	if floor < 0 || floor > 1 {
		return fmt.Errorf("%w: confidence_floor must be within [0, 1]", ErrInvalidSchema)
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: field name required", ErrInvalidSchema)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = true
	}

	return nil
}
