package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used by unit tests and one-off tooling.
// Tables spring into existence on first write; reads of unknown tables return
// empty results so step code behaves the same as against an empty database.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Row)}
}

// Seed inserts rows without the upsert bookkeeping; intended for test setup.
func (s *MemoryStore) Seed(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.tables[table] = append(s.tables[table], row.Clone())
	}
}

func (s *MemoryStore) Find(ctx context.Context, table, where string, params []any, sortField string, desc bool, offset, limit int) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Row, 0)
	for _, row := range s.tables[table] {
		ok, err := matchWhere(row, where, params)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", table, err)
		}
		if ok {
			matched = append(matched, row.Clone())
		}
	}

	if sortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i][sortField] > matched[j][sortField]
			}
			return matched[i][sortField] < matched[j][sortField]
		})
	}

	if offset > 0 {
		if offset >= len(matched) {
			return []Row{}, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) Load(ctx context.Context, table, pk string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.tables[table] {
		if row[PrimaryKey] == pk {
			return row.Clone(), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SaveOrUpdate(ctx context.Context, table string, rows ...Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		pk := row[PrimaryKey]
		if pk == "" {
			return fmt.Errorf("save %s: row has no primary key", table)
		}
		replaced := false
		for i, existing := range s.tables[table] {
			if existing[PrimaryKey] == pk {
				s.tables[table][i] = row.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			s.tables[table] = append(s.tables[table], row.Clone())
		}
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, table, pk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	for i, row := range rows {
		if row[PrimaryKey] == pk {
			s.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count returns the number of rows currently held in a table.
func (s *MemoryStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// matchWhere evaluates the same restricted clause grammar the gorm store
// accepts: "field op ?" clauses joined by AND or OR (not both). Comparison is
// lexicographic, which matches ISO dates and zero-padded keys.
func matchWhere(row Row, where string, params []any) (bool, error) {
	if where == "" {
		return true, nil
	}

	conn := " AND "
	if strings.Contains(where, " OR ") {
		if strings.Contains(where, " AND ") {
			return false, fmt.Errorf("mixed AND/OR in where clause %q", where)
		}
		conn = " OR "
	}

	clauses := strings.Split(where, conn)
	if len(clauses) != len(params) {
		return false, fmt.Errorf("where clause %q expects %d params, got %d", where, len(clauses), len(params))
	}

	for i, clause := range clauses {
		parts := strings.Fields(strings.TrimSpace(clause))
		if len(parts) != 3 || parts[2] != "?" {
			return false, fmt.Errorf("unsupported where clause %q", clause)
		}
		have := row[parts[0]]
		want := fmt.Sprintf("%v", params[i])

		var ok bool
		switch parts[1] {
		case "=":
			ok = have == want
		case "!=":
			ok = have != want
		case "<":
			ok = have < want
		case ">":
			ok = have > want
		case "<=":
			ok = have <= want
		case ">=":
			ok = have >= want
		default:
			return false, fmt.Errorf("unsupported operator %q in where clause", parts[1])
		}

		if conn == " OR " && ok {
			return true, nil
		}
		if conn == " AND " && !ok {
			return false, nil
		}
	}
	return conn == " AND ", nil
}

var _ Store = (*MemoryStore)(nil)
