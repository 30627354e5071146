package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"storefront/deploy/migrations"
	"storefront/internal/account"
)

func TestAccountStoreAppend(t *testing.T) {
	t.Parallel()

	db, driver := newMockDB(t, []mockOperation{
		execOp(`INSERT INTO accounts (remote_id, email, username, password, firstname, lastname, phone, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, mockResult{lastInsertID: 1, rowsAffected: 1}),
	})
	defer driver.assertConsumed(t)
	defer db.Close()

	store := &AccountStore{db: db}
	err := store.Append(context.Background(), account.Account{
		ID: 11, Email: "john@gmail.com", Username: "johnd", Password: "m38rmF$",
		Name: account.Name{Firstname: "John", Lastname: "Doe"}, Phone: "1234567890", CreatedAt: 1,
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
}

func TestAccountStoreFindByLogin(t *testing.T) {
	t.Parallel()

	rows := mockRowsData{
		columns: []string{"remote_id", "email", "username", "password", "firstname", "lastname", "phone", "created_at"},
		values: [][]driver.Value{
			{int64(11), "john@gmail.com", "johnd", "m38rmF$", "John", "Doe", "1234567890", int64(10)},
			{int64(11), "other@gmail.com", "johnd", "second", "Jon", "Dough", "0987654321", int64(20)},
		},
	}
	db, driver := newMockDB(t, []mockOperation{
		queryOp(`SELECT remote_id, email, username, password, firstname, lastname, phone, created_at
    FROM accounts WHERE username = ? OR email = ? ORDER BY seq ASC`, rows),
	})
	defer driver.assertConsumed(t)
	defer db.Close()

	store := &AccountStore{db: db}
	accounts, err := store.FindByLogin(context.Background(), " johnd ")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Password != "m38rmF$" || accounts[1].Name.Lastname != "Dough" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestAccountStoreFindByLoginEmptyIdentifier(t *testing.T) {
	t.Parallel()

	db, driver := newMockDB(t, nil)
	defer driver.assertConsumed(t)
	defer db.Close()

	store := &AccountStore{db: db}
	accounts, err := store.FindByLogin(context.Background(), "   ")
	if err != nil || len(accounts) != 0 {
		t.Fatalf("expected no lookup for empty identifier, got %+v %v", accounts, err)
	}
}

func TestAccountStoreListEmpty(t *testing.T) {
	t.Parallel()

	db, driver := newMockDB(t, []mockOperation{
		queryOp(`SELECT remote_id, email, username, password, firstname, lastname, phone, created_at
    FROM accounts ORDER BY seq ASC`, mockRowsData{columns: []string{"remote_id", "email", "username", "password", "firstname", "lastname", "phone", "created_at"}}),
	})
	defer driver.assertConsumed(t)
	defer db.Close()

	store := &AccountStore{db: db}
	accounts, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if accounts == nil || len(accounts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", accounts)
	}
}

func TestRunMigrations(t *testing.T) {
	t.Parallel()

	ops := []mockOperation{
		execOp(createSchemaTable, mockResult{}),
		queryOp(selectSchemaRows, mockRowsData{columns: []string{"version", "checksum"}}),
		beginOp(),
		execOp(readMigrationStatement(), mockResult{rowsAffected: 0}),
		execOp(`INSERT INTO storefront_schema (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`, mockResult{rowsAffected: 1}),
		commitOp(),
	}
	db, driver := newMockDB(t, ops)
	defer driver.assertConsumed(t)
	defer db.Close()

	if err := runMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
}

func TestRunMigrationsSkipsApplied(t *testing.T) {
	t.Parallel()

	ops := []mockOperation{
		execOp(createSchemaTable, mockResult{}),
		queryOp(selectSchemaRows, mockRowsData{
			columns: []string{"version", "checksum"},
			values:  [][]driver.Value{{"0001", embeddedChecksum("0001_create_accounts.sql")}},
		}),
	}
	db, driver := newMockDB(t, ops)
	defer driver.assertConsumed(t)
	defer db.Close()

	if err := runMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
}

func TestMigratorRejectsEditedScript(t *testing.T) {
	t.Parallel()

	ops := []mockOperation{
		execOp(createSchemaTable, mockResult{}),
		queryOp(selectSchemaRows, mockRowsData{
			columns: []string{"version", "checksum"},
			values:  [][]driver.Value{{"0001", "stale"}},
		}),
	}
	db, driver := newMockDB(t, ops)
	defer driver.assertConsumed(t)
	defer db.Close()

	_, err := newMigrator(db, migrations.Files).run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "0001_create_accounts.sql") {
		t.Fatalf("expected edited script to be rejected, got %v", err)
	}
}

func TestMigratorRollsBackFailedStep(t *testing.T) {
	t.Parallel()

	source := fstest.MapFS{
		"0001_orders.sql": {Data: []byte("CREATE TABLE orders (id BIGINT);\nCREATE INDEX idx ON orders (id);")},
	}
	ops := []mockOperation{
		execOp(createSchemaTable, mockResult{}),
		queryOp(selectSchemaRows, mockRowsData{columns: []string{"version", "checksum"}}),
		beginOp(),
		execOp(`CREATE TABLE orders (id BIGINT)`, mockResult{}),
		{typ: opExec, query: `CREATE INDEX idx ON orders (id)`, err: errors.New("duplicate key name")},
		rollbackOp(),
	}
	db, driver := newMockDB(t, ops)
	defer driver.assertConsumed(t)
	defer db.Close()

	applied, err := newMigrator(db, source).run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "第 2 条语句") {
		t.Fatalf("expected statement failure, got %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected nothing applied, got %d", applied)
	}
}

func TestMigratorStepsSkipsNonSQLAndComments(t *testing.T) {
	m := &migrator{source: fstest.MapFS{
		"0002_index.sql":  {Data: []byte("-- 用户名索引\nCREATE INDEX a ON accounts (username);\n")},
		"0001_init.sql":   {Data: []byte("CREATE TABLE accounts (seq BIGINT);")},
		"0003_empty.sql":  {Data: []byte("-- 占位\n")},
		"README.md":       {Data: []byte("not sql;")},
		"archive/old.sql": {Data: []byte("DROP TABLE accounts;")},
	}}

	steps, err := m.steps()
	if err != nil {
		t.Fatalf("steps failed: %v", err)
	}
	var got []string
	for _, step := range steps {
		got = append(got, step.version+":"+strings.Join(step.statements, "|"))
	}
	want := []string{
		"0001:CREATE TABLE accounts (seq BIGINT)",
		"0002:CREATE INDEX a ON accounts (username)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestMigratorStepsRejectsDuplicateVersion(t *testing.T) {
	m := &migrator{source: fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 2;")},
	}}
	if _, err := m.steps(); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}

func TestParseMigrationVersion(t *testing.T) {
	cases := map[string]string{
		"0001_create_accounts.sql": "0001",
		"0002.sql":                 "0002",
		"plain":                    "plain",
	}
	for name, want := range cases {
		if got := parseMigrationVersion(name); got != want {
			t.Fatalf("parseMigrationVersion(%q) = %q, want %q", name, got, want)
		}
	}
}

func readMigrationStatement() string {
	content, err := migrations.Files.ReadFile("0001_create_accounts.sql")
	if err != nil {
		panic(fmt.Sprintf("failed to read migration: %v", err))
	}
	statements := splitSQLStatements(string(content))
	if len(statements) == 0 {
		panic("no statements in migration")
	}
	return statements[0]
}

func embeddedChecksum(name string) string {
	content, err := migrations.Files.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to read migration: %v", err))
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

type operationType int

const (
	opExec operationType = iota
	opQuery
	opBegin
	opCommit
	opRollback
)

type mockOperation struct {
	typ    operationType
	query  string
	result mockResult
	rows   mockRowsData
	err    error
}

type mockResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r mockResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r mockResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type mockRowsData struct {
	columns []string
	values  [][]driver.Value
}

type queueDriver struct {
	ops []mockOperation
	idx int32
}

var driverSeq atomic.Int32

func newMockDB(t *testing.T, ops []mockOperation) (*sql.DB, *queueDriver) {
	t.Helper()

	drv := &queueDriver{ops: ops}
	name := fmt.Sprintf("mock-mysql-%d", driverSeq.Add(1))
	sql.Register(name, drv)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open mock db failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, drv
}

func execOp(query string, result mockResult) mockOperation {
	return mockOperation{typ: opExec, query: query, result: result}
}

func queryOp(query string, rows mockRowsData) mockOperation {
	return mockOperation{typ: opQuery, query: query, rows: rows}
}

func beginOp() mockOperation { return mockOperation{typ: opBegin} }

func commitOp() mockOperation { return mockOperation{typ: opCommit} }

func rollbackOp() mockOperation { return mockOperation{typ: opRollback} }

func (d *queueDriver) assertConsumed(t *testing.T) {
	t.Helper()

	if int(atomic.LoadInt32(&d.idx)) != len(d.ops) {
		t.Fatalf("not all operations consumed: %d/%d", atomic.LoadInt32(&d.idx), len(d.ops))
	}
}

func (d *queueDriver) Open(name string) (driver.Conn, error) {
	return &mockConn{driver: d}, nil
}

type mockConn struct {
	driver *queueDriver
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *mockConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	op, err := c.driver.next(opBegin, "")
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &mockTx{driver: c.driver}, nil
}

func (c *mockConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	op, err := c.driver.next(opExec, query)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return op.result, nil
}

func (c *mockConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	op, err := c.driver.next(opQuery, query)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &mockRows{columns: op.rows.columns, values: op.rows.values}, nil
}

func (c *mockConn) Ping(ctx context.Context) error { return nil }

func (d *queueDriver) next(expected operationType, query string) (*mockOperation, error) {
	idx := int(atomic.LoadInt32(&d.idx))
	if idx >= len(d.ops) {
		return nil, fmt.Errorf("unexpected operation: %v", expected)
	}
	op := &d.ops[idx]
	if op.typ != expected {
		return nil, fmt.Errorf("expected operation %v, got %v", expected, op.typ)
	}
	atomic.AddInt32(&d.idx, 1)
	if op.query != "" {
		expectedSQL := normalizeSQL(op.query)
		actualSQL := normalizeSQL(query)
		if expectedSQL != actualSQL {
			return nil, fmt.Errorf("unexpected query. want %q got %q", expectedSQL, actualSQL)
		}
	}
	return op, nil
}

type mockTx struct {
	driver *queueDriver
}

func (t *mockTx) Commit() error {
	op, err := t.driver.next(opCommit, "")
	if err != nil {
		return err
	}
	return op.err
}

func (t *mockTx) Rollback() error {
	op, err := t.driver.next(opRollback, "")
	if err != nil {
		return err
	}
	return op.err
}

type mockRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *mockRows) Columns() []string { return r.columns }
func (r *mockRows) Close() error      { return nil }

func (r *mockRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
