package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

const recordsTable = "final_records"

var textType = map[string]string{dialect.Postgres: "text", dialect.SQLite: "text"}
var moneyType = map[string]string{dialect.Postgres: "numeric(14,2)"}

var (
	// seq orders the records; id is the public identifier
	colSeq        = &schema.Column{Name: "seq", Type: field.TypeInt64, Increment: true}
	recordColumns = []*schema.Column{
		colSeq,
		{Name: "id", Type: field.TypeString, Size: 36, Unique: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "full_name", Type: field.TypeString, Nullable: true, SchemaType: textType},
		{Name: "position", Type: field.TypeString, Nullable: true, SchemaType: textType},
		{Name: "employer", Type: field.TypeString, Nullable: true, SchemaType: textType},
		{Name: "average_net_salary", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "monthly_capacity", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "total_borrowable", Type: field.TypeFloat64, SchemaType: moneyType},
		{Name: "loan_years", Type: field.TypeInt},
		{Name: "verified", Type: field.TypeBool},
		{Name: "reason", Type: field.TypeString, Nullable: true, SchemaType: textType},
	}
	// FinalRecordsTable is the migrated schema of the SQL result store.
	FinalRecordsTable = &schema.Table{
		Name:       recordsTable,
		Columns:    recordColumns,
		PrimaryKey: []*schema.Column{colSeq},
	}
)

// selectColumns is every column but seq, in FinalRecord order.
var selectColumns = []string{
	"id", "created_at", "full_name", "position", "employer",
	"average_net_salary", "monthly_capacity", "total_borrowable",
	"loan_years", "verified", "reason",
}

// SQLStore keeps records in the final_records table through ent's SQL driver.
type SQLStore struct {
	drv     *entsql.Driver
	logger  *slog.Logger
	closers []func() error
}

func newSQLStore(ctx context.Context, drv *entsql.Driver, logger *slog.Logger) (*SQLStore, error) {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, persistenceError("init migration", err)
	}
	if err := m.Create(ctx, FinalRecordsTable); err != nil {
		logger.Error("store.migrate.failed", "dialect", drv.Dialect(), "error", err)
		return nil, persistenceError("migrate", err)
	}
	logger.Info("store.migrate.ok", "dialect", drv.Dialect(), "table", recordsTable)
	return &SQLStore{drv: drv, logger: logger}, nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *SQLStore) Append(ctx context.Context, rec entity.FinalRecord) error {
	start := time.Now()
	var reason any
	if rec.Reason != "" {
		reason = rec.Reason
	}
	b := s.builder()
	query, args := b.Insert(recordsTable).
		Columns(selectColumns...).
		Values(
			rec.ID.String(),
			rec.CreatedAt.UTC(),
			nullable(rec.FullName),
			nullable(rec.Position),
			nullable(rec.Employer),
			rec.AverageNetSalary,
			rec.MonthlyCapacity,
			rec.TotalBorrowable,
			rec.LoanYears,
			rec.Verified,
			reason,
		).
		Query()

	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		s.logger.Error("store.append.failed", "backend", s.drv.Dialect(), "id", rec.ID, "error", err)
		return persistenceError("sql store append", err)
	}
	s.logger.Info("store.append.ok",
		"backend", s.drv.Dialect(),
		"id", rec.ID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]entity.FinalRecord, error) {
	b := s.builder()
	query, args := b.Select(selectColumns...).
		From(entsql.Table(recordsTable)).
		OrderBy("seq").
		Query()
	return s.query(ctx, query, args)
}

func (s *SQLStore) Latest(ctx context.Context) (entity.FinalRecord, error) {
	b := s.builder()
	query, args := b.Select(selectColumns...).
		From(entsql.Table(recordsTable)).
		OrderBy(entsql.Desc("seq")).
		Limit(1).
		Query()
	recs, err := s.query(ctx, query, args)
	if err != nil {
		return entity.FinalRecord{}, err
	}
	if len(recs) == 0 {
		return entity.FinalRecord{}, common.ErrNotFound
	}
	return recs[0], nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	b := s.builder()
	query, args := b.Select(entsql.Count("*")).From(entsql.Table(recordsTable)).Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return 0, persistenceError("sql store count", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, persistenceError("sql store count", err)
		}
	}
	return n, rows.Err()
}

func (s *SQLStore) Close() error {
	err := s.drv.Close()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SQLStore) query(ctx context.Context, query string, args []any) ([]entity.FinalRecord, error) {
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		s.logger.Error("store.list.failed", "backend", s.drv.Dialect(), "error", err)
		return nil, persistenceError("sql store list", err)
	}
	defer rows.Close()

	out := []entity.FinalRecord{}
	for rows.Next() {
		var (
			rec                          entity.FinalRecord
			id                           string
			fullName, position, employer sql.NullString
			reason                       sql.NullString
		)
		if err := rows.Scan(
			&id, &rec.CreatedAt, &fullName, &position, &employer,
			&rec.AverageNetSalary, &rec.MonthlyCapacity, &rec.TotalBorrowable,
			&rec.LoanYears, &rec.Verified, &reason,
		); err != nil {
			return nil, persistenceError("sql store scan", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, persistenceError("sql store scan", fmt.Errorf("record id %q: %w", id, err))
		}
		rec.ID = parsed
		rec.FullName = fromNull(fullName)
		rec.Position = fromNull(position)
		rec.Employer = fromNull(employer)
		rec.Reason = reason.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("sql store rows", err)
	}
	return out, nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
