package records

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func testRepo(t *testing.T) (*repo, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &repo{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mock
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "document_id", "document_type", "image_path",
		"extracted_fields", "confidence_scores", "user_validations",
		"quality_score", "created_at",
	})
}

func TestListQualifiedQuery(t *testing.T) {
	r, mock := testRepo(t)

	rows := recordRows().AddRow(
		uuid.New().String(), uuid.New().String(), "invoice", "documents/a.pdf",
		[]byte(`{"invoice_number":"INV-001"}`), []byte(`{"invoice_number":0.9}`), []byte(`[]`),
		0.9, time.Now().UTC(),
	)

	mock.ExpectQuery(`SELECT tr\..+ FROM public\.training_records tr WHERE tr\.quality_score >= \$1 AND tr\.document_type IN .+ ORDER BY tr\.created_at ASC, tr\.id ASC`).
		WithArgs(0.7, []byte(`["invoice"]`)).
		WillReturnRows(rows)

	items, err := r.ListQualified(context.Background(), []string{"invoice"}, 0.7)
	if err != nil {
		t.Fatalf("list qualified failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ExtractedFields["invoice_number"] != "INV-001" {
		t.Errorf("extracted invoice_number = %q", items[0].ExtractedFields["invoice_number"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListQualifiedWithoutTypeFilter(t *testing.T) {
	r, mock := testRepo(t)

	mock.ExpectQuery(`WHERE tr\.quality_score >= \$1 ORDER BY`).
		WithArgs(0.7).
		WillReturnRows(recordRows())

	items, err := r.ListQualified(context.Background(), nil, 0.7)
	if err != nil {
		t.Fatalf("list qualified failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
