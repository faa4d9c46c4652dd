/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements CatalogStore, StudentStore, SettingsStore and HistoryStore using
  SQLite. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

KEY TABLES:
  books:     Raw catalog rows; open loans serialized into a JSON column
  students:  Borrower records keyed by Student.Key()
  settings:  Single-row policy configuration as JSON
  history:   Append-only loan history (no UPDATE, no DELETE)

LOANS COLUMN:
  A book's open loans live inside its row as JSON rather than a join table:
  loans are read and written together with the row on every borrow/return,
  and the engine treats the row as the atomic unit.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. The engine's
  per-entity locks serialize logical operations; the store mutex only guards
  connection-level races.

USAGE:
  st, err := sqlite.New("./data/library.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  manager := library.NewManager(st, st.Students(), st, st)

SEE ALSO:
  - library/store.go: Interface definitions
  - library/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/library-engine/library"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		category TEXT,
		quantity INTEGER NOT NULL DEFAULT 0,
		total_quantity INTEGER NOT NULL DEFAULT 0,
		healthy_count INTEGER NOT NULL DEFAULT 0,
		damaged_count INTEGER NOT NULL DEFAULT 0,
		lost_count INTEGER NOT NULL DEFAULT 0,
		loans_json TEXT NOT NULL DEFAULT '[]',
		shelf TEXT,
		publisher TEXT,
		summary TEXT,
		book_number INTEGER,
		year INTEGER,
		page_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_books_title_author ON books(title, author);

	CREATE TABLE IF NOT EXISTS students (
		key TEXT PRIMARY KEY,
		student_number INTEGER,
		name TEXT NOT NULL,
		surname TEXT,
		class INTEGER,
		branch TEXT,
		borrowed INTEGER NOT NULL DEFAULT 0,
		returned INTEGER NOT NULL DEFAULT 0,
		late INTEGER NOT NULL DEFAULT 0,
		penalty_points INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL
	);

	-- Append-only loan history
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		status TEXT NOT NULL,
		book_id TEXT NOT NULL,
		title TEXT,
		author TEXT,
		borrower TEXT NOT NULL,
		student_number INTEGER,
		borrowed_at TEXT NOT NULL,
		due_date TEXT NOT NULL,
		returned_at TEXT,
		was_late INTEGER NOT NULL DEFAULT 0,
		late_days INTEGER NOT NULL DEFAULT 0,
		condition TEXT,
		borrow_personnel TEXT,
		return_personnel TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_history_borrower ON history(borrower);
	CREATE INDEX IF NOT EXISTS idx_history_book ON history(book_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CATALOG STORE
// =============================================================================

const bookColumns = `id, title, author, category, quantity, total_quantity,
	healthy_count, damaged_count, lost_count, loans_json,
	shelf, publisher, summary, book_number, year, page_count`

func (s *Store) List(ctx context.Context) ([]library.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id library.BookID) (*library.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, string(id))
	b, err := scanBook(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	return b, err
}

func (s *Store) Save(ctx context.Context, b *library.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans, err := json.Marshal(b.Loans)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			category = excluded.category,
			quantity = excluded.quantity,
			total_quantity = excluded.total_quantity,
			healthy_count = excluded.healthy_count,
			damaged_count = excluded.damaged_count,
			lost_count = excluded.lost_count,
			loans_json = excluded.loans_json,
			shelf = excluded.shelf,
			publisher = excluded.publisher,
			summary = excluded.summary,
			book_number = excluded.book_number,
			year = excluded.year,
			page_count = excluded.page_count`,
		string(b.ID), b.Title, b.Author, b.Category, b.Quantity, b.TotalQuantity,
		b.HealthyCount, b.DamagedCount, b.LostCount, string(loans),
		b.Shelf, b.Publisher, b.Summary, b.BookNumber, b.Year, b.PageCount)
	return err
}

func (s *Store) Delete(ctx context.Context, id library.BookID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return library.ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(r rowScanner) (*library.Book, error) {
	var b library.Book
	var loansJSON string
	var category, shelf, publisher, summary sql.NullString
	var bookNumber, year, pageCount sql.NullInt64

	err := r.Scan(&b.ID, &b.Title, &b.Author, &category, &b.Quantity, &b.TotalQuantity,
		&b.HealthyCount, &b.DamagedCount, &b.LostCount, &loansJSON,
		&shelf, &publisher, &summary, &bookNumber, &year, &pageCount)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(loansJSON), &b.Loans); err != nil {
		return nil, fmt.Errorf("corrupt loans column for book %s: %w", b.ID, err)
	}
	b.Category = category.String
	b.Shelf = shelf.String
	b.Publisher = publisher.String
	b.Summary = summary.String
	b.BookNumber = int(bookNumber.Int64)
	b.Year = int(year.Int64)
	b.PageCount = int(pageCount.Int64)
	return &b, nil
}

// =============================================================================
// STUDENT STORE
// =============================================================================

func (s *Store) ListStudents(ctx context.Context) ([]library.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT student_number, name, surname, class, branch, borrowed, returned, late, penalty_points
		FROM students ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, key string) (*library.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT student_number, name, surname, class, branch, borrowed, returned, late, penalty_points
		FROM students WHERE key = ?`, key)
	st, err := scanStudent(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	return st, err
}

func (s *Store) SaveStudent(ctx context.Context, st *library.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := st.Key()
	if key == "" {
		return library.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (key, student_number, name, surname, class, branch, borrowed, returned, late, penalty_points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			student_number = excluded.student_number,
			name = excluded.name,
			surname = excluded.surname,
			class = excluded.class,
			branch = excluded.branch,
			borrowed = excluded.borrowed,
			returned = excluded.returned,
			late = excluded.late,
			penalty_points = excluded.penalty_points`,
		key, st.StudentNumber, st.Name, st.Surname, st.Class, st.Branch,
		st.Borrowed, st.Returned, st.Late, st.PenaltyPoints)
	return err
}

func (s *Store) DeleteStudent(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE key = ?`, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return library.ErrNotFound
	}
	return err
}

func scanStudent(r rowScanner) (*library.Student, error) {
	var st library.Student
	var surname, branch sql.NullString
	var number, class sql.NullInt64
	err := r.Scan(&number, &st.Name, &surname, &class, &branch,
		&st.Borrowed, &st.Returned, &st.Late, &st.PenaltyPoints)
	if err != nil {
		return nil, err
	}
	st.StudentNumber = int(number.Int64)
	st.Surname = surname.String
	st.Class = int(class.Int64)
	st.Branch = branch.String
	return &st, nil
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (s *Store) Policy(ctx context.Context) (library.PolicyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT config_json FROM settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return library.DefaultPolicy(), nil
	}
	if err != nil {
		return library.PolicyConfig{}, err
	}

	var cfg library.PolicyConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return library.PolicyConfig{}, fmt.Errorf("corrupt settings row: %w", err)
	}
	return cfg.Normalize(), nil
}

func (s *Store) SavePolicy(ctx context.Context, cfg library.PolicyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(cfg.Normalize())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, config_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET config_json = excluded.config_json`, string(raw))
	return err
}

// =============================================================================
// HISTORY STORE - Append-only (no UPDATE, no DELETE)
// =============================================================================

func (s *Store) Append(ctx context.Context, e library.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var returnedAt any
	if e.ReturnedAt != nil {
		returnedAt = e.ReturnedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, loan_id, status, book_id, title, author, borrower, student_number,
			borrowed_at, due_date, returned_at, was_late, late_days, condition,
			borrow_personnel, return_personnel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.LoanID), string(e.Status), string(e.BookID), e.Title, e.Author,
		e.Borrower, e.StudentNumber,
		e.BorrowedAt.Format(time.RFC3339Nano), e.DueDate.Format(time.RFC3339Nano), returnedAt,
		boolToInt(e.WasLate), e.LateDays, string(e.Condition),
		e.BorrowPersonnel, e.ReturnPersonnel)
	return err
}

func (s *Store) Query(ctx context.Context, f library.HistoryFilter) ([]library.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Filtering happens in Go: the borrower match needs the name
	// normalization the database does not know about.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, status, book_id, title, author, borrower, student_number,
			borrowed_at, due_date, returned_at, was_late, late_days, condition,
			borrow_personnel, return_personnel
		FROM history ORDER BY borrowed_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []library.HistoryEntry
	for rows.Next() {
		var e library.HistoryEntry
		var borrowedAt, dueDate string
		var title, author, returnedAt, condition, borrowP, returnP sql.NullString
		var wasLate int
		var number sql.NullInt64
		err := rows.Scan(&e.ID, &e.LoanID, &e.Status, &e.BookID, &title, &author,
			&e.Borrower, &number, &borrowedAt, &dueDate, &returnedAt,
			&wasLate, &e.LateDays, &condition, &borrowP, &returnP)
		if err != nil {
			return nil, err
		}
		e.Title = title.String
		e.Author = author.String
		e.StudentNumber = int(number.Int64)
		e.WasLate = wasLate != 0
		e.Condition = library.Condition(condition.String)
		e.BorrowPersonnel = borrowP.String
		e.ReturnPersonnel = returnP.String
		if e.BorrowedAt, err = time.Parse(time.RFC3339Nano, borrowedAt); err != nil {
			return nil, err
		}
		if e.DueDate, err = time.Parse(time.RFC3339Nano, dueDate); err != nil {
			return nil, err
		}
		if returnedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, returnedAt.String)
			if err != nil {
				return nil, err
			}
			e.ReturnedAt = &t
		}
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// INTERFACE ADAPTERS
// =============================================================================

type studentView struct{ s *Store }

func (v studentView) List(ctx context.Context) ([]library.Student, error) {
	return v.s.ListStudents(ctx)
}
func (v studentView) Get(ctx context.Context, key string) (*library.Student, error) {
	return v.s.GetStudent(ctx, key)
}
func (v studentView) Save(ctx context.Context, st *library.Student) error {
	return v.s.SaveStudent(ctx, st)
}
func (v studentView) Delete(ctx context.Context, key string) error {
	return v.s.DeleteStudent(ctx, key)
}

// Students returns the StudentStore view of this store.
func (s *Store) Students() library.StudentStore { return studentView{s} }

var (
	_ library.CatalogStore  = (*Store)(nil)
	_ library.SettingsStore = (*Store)(nil)
	_ library.HistoryStore  = (*Store)(nil)
	_ library.StudentStore  = studentView{}
)
