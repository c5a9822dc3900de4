package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormStore implements Store on top of a GORM connection. Logical table and
// field names are translated through the table descriptors in tables.go.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given GORM connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Find(ctx context.Context, table, where string, params []any, sort string, desc bool, offset, limit int) ([]Row, error) {
	def, ok := tableDefs[table]
	if !ok {
		return nil, fmt.Errorf("find %s: %w", table, ErrUnknownTable)
	}

	q := s.db.WithContext(ctx).Table(def.physical)
	if where != "" {
		translated, err := translateWhere(def, where)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", table, err)
		}
		q = q.Where(translated, params...)
	}
	if sort != "" {
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		q = q.Order(def.column(sort) + " " + dir)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var recs []map[string]interface{}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		row := make(Row, len(rec))
		for col, val := range rec {
			row[def.logical(col)] = valueToString(val)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *GormStore) Load(ctx context.Context, table, pk string) (Row, error) {
	rows, err := s.Find(ctx, table, PrimaryKey+" = ?", []any{pk}, "", false, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *GormStore) SaveOrUpdate(ctx context.Context, table string, rows ...Row) error {
	def, ok := tableDefs[table]
	if !ok {
		return fmt.Errorf("save %s: %w", table, ErrUnknownTable)
	}

	for _, row := range rows {
		pk := row[PrimaryKey]
		if pk == "" {
			return fmt.Errorf("save %s: row has no primary key", table)
		}

		rec := make(map[string]interface{}, len(row))
		for field, val := range row {
			rec[def.column(field)] = val
		}

		existing, err := s.Load(ctx, table, pk)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := s.db.WithContext(ctx).Table(def.physical).
				Where(PrimaryKey+" = ?", pk).Updates(rec).Error; err != nil {
				return fmt.Errorf("failed to update %s row %s: %w", table, pk, err)
			}
			continue
		}
		if err := s.db.WithContext(ctx).Table(def.physical).Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert %s row %s: %w", table, pk, err)
		}
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, table, pk string) error {
	def, ok := tableDefs[table]
	if !ok {
		return fmt.Errorf("delete %s: %w", table, ErrUnknownTable)
	}
	if err := s.db.WithContext(ctx).
		Exec("DELETE FROM "+def.physical+" WHERE "+PrimaryKey+" = ?", pk).Error; err != nil {
		return fmt.Errorf("failed to delete %s row %s: %w", table, pk, err)
	}
	return nil
}

// translateWhere rewrites logical field names in a simple conjunctive or
// disjunctive where clause ("field op ? AND field op ?") to physical columns.
func translateWhere(def tableDef, where string) (string, error) {
	conn := " AND "
	if strings.Contains(where, " OR ") {
		if strings.Contains(where, " AND ") {
			return "", fmt.Errorf("mixed AND/OR in where clause %q", where)
		}
		conn = " OR "
	}

	clauses := strings.Split(where, conn)
	for i, clause := range clauses {
		parts := strings.Fields(strings.TrimSpace(clause))
		if len(parts) != 3 || parts[2] != "?" {
			return "", fmt.Errorf("unsupported where clause %q", clause)
		}
		switch parts[1] {
		case "=", "!=", "<", ">", "<=", ">=":
		default:
			return "", fmt.Errorf("unsupported operator %q in where clause", parts[1])
		}
		clauses[i] = def.column(parts[0]) + " " + parts[1] + " ?"
	}
	return strings.Join(clauses, conn), nil
}

func valueToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05Z07:00")
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var _ Store = (*GormStore)(nil)
