// Package datarecording stores assembled topologies in SQLite databases.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder stores flat structs as table rows.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one row for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the created tables, sorted.
	ListTables() []string

	// Flush writes all the buffered rows.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a recorder that writes to path.sqlite3. An empty path picks a
// unique name. The buffered rows are flushed when the program exits through
// atexit.
func New(path string) DataRecorder {
	w := newWriter()
	w.dbName = path
	w.open()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a recorder on an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := newWriter()
	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

func newWriter() *sqliteWriter {
	return &sqliteWriter{
		batchSize: 10000,
		tables:    make(map[string]*table),
	}
}

type table struct {
	structType reflect.Type
	columns    []string
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

func (w *sqliteWriter) open() {
	if w.dbName == "" {
		w.dbName = "mesitopo_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.DB = db
}

func isColumnKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func mustBeFlatStruct(entry any) reflect.Type {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("entry %v is not a struct", entry))
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || !isColumnKind(f.Type.Kind()) {
			panic(fmt.Sprintf("field %s of %s cannot be a column",
				f.Name, t.Name()))
		}
	}

	return t
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	structType := mustBeFlatStruct(sampleEntry)
	columns := structs.Names(sampleEntry)

	w.mustExecute(fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);",
		tableName, strings.Join(columns, ",\n\t")))

	w.tables[tableName] = &table{
		structType: structType,
		columns:    columns,
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("table %s does not store %T", tableName, entry))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for _, name := range w.ListTables() {
		w.flushTable(name, w.tables[name])
	}

	w.entryCount = 0
}

func (w *sqliteWriter) flushTable(name string, t *table) {
	if len(t.entries) == 0 {
		return
	}

	placeholders := strings.TrimSuffix(
		strings.Repeat("?, ", len(t.columns)), ", ")

	stmt, err := w.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		name, placeholders))
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			panic(err)
		}
	}

	t.entries = nil
}

func (w *sqliteWriter) Close() error {
	w.Flush()
	return w.DB.Close()
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
