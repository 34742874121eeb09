package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions locates a ClickHouse server.
type ClickHouseOptions struct {
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	BatchSize int
}

type clickHouseTable struct {
	structType reflect.Type
	entries    []any
}

// clickHouseRecorder writes records into a ClickHouse server, one MergeTree
// table per record type.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*clickHouseTable
	tableOrder []string
	entryCount int
}

// NewClickHouseRecorder connects to a ClickHouse server.
func NewClickHouseRecorder(opts ClickHouseOptions) (DataRecorder, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to ClickHouse")
	}

	err = conn.Ping(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "failed to ping ClickHouse")
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*clickHouseTable),
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "Int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "UInt64"
	case reflect.Float32, reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("kind %s cannot be recorded", kind))
	}
}

// clickHouseDDL returns the CREATE TABLE statement of a record type.
func clickHouseDDL(tableName string, sampleEntry any) string {
	t := reflect.TypeOf(sampleEntry)
	names := structs.Names(sampleEntry)

	columns := make([]string, len(names))
	for i, n := range names {
		f, _ := t.FieldByName(n)
		columns[i] = n + " " + clickHouseType(f.Type.Kind())
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY tuple()",
		tableName, strings.Join(columns, ",\n\t"))
}

// clickHouseValues widens the fields of an entry to the Go types the
// columns created by clickHouseDDL accept.
func clickHouseValues(entry any) []any {
	v := reflect.ValueOf(entry)
	values := make([]any, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)

		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
			reflect.Int64:
			values[i] = f.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
			reflect.Uint64:
			values[i] = f.Uint()
		case reflect.Float32, reflect.Float64:
			values[i] = f.Float()
		case reflect.Bool:
			values[i] = f.Bool()
		default:
			values[i] = f.String()
		}
	}

	return values
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := checkStructFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	if _, found := r.tables[tableName]; found {
		return
	}

	err = r.conn.Exec(context.Background(),
		clickHouseDDL(tableName, sampleEntry))
	if err != nil {
		panic(errors.Wrapf(err, "failed to create table %s", tableName))
	}

	r.tableOrder = append(r.tableOrder, tableName)
	r.tables[tableName] = &clickHouseTable{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	table, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)
	r.entryCount++
	full := r.entryCount >= r.batchSize

	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, len(r.tableOrder))
	copy(tables, r.tableOrder)

	return tables
}

func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for _, name := range r.tableOrder {
		table := r.tables[name]
		if len(table.entries) == 0 {
			continue
		}

		err := r.flushTable(ctx, name, table)
		if err != nil {
			panic(err)
		}

		table.entries = nil
	}

	r.entryCount = 0
}

func (r *clickHouseRecorder) flushTable(
	ctx context.Context,
	name string,
	table *clickHouseTable,
) error {
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+name)
	if err != nil {
		return errors.Wrapf(err, "failed to prepare batch for %s", name)
	}

	for _, entry := range table.entries {
		err = batch.Append(clickHouseValues(entry)...)
		if err != nil {
			return errors.Wrapf(err, "failed to append to %s", name)
		}
	}

	err = batch.Send()
	if err != nil {
		return errors.Wrapf(err, "failed to send batch for %s", name)
	}

	return nil
}

func (r *clickHouseRecorder) Close() error {
	r.Flush()
	return r.conn.Close()
}
