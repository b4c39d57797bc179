package db

import (
	"database/sql"
	"fmt"
)

// ColumnType describes an expected column.
type ColumnType struct {
	Name     string
	DataType string
	Nullable bool
}

// TableSchema describes an expected table.
type TableSchema struct {
	Name    string
	Columns []ColumnType
}

// SchemaGuard validates at startup that the live schema carries the columns
// the queries depend on.
type SchemaGuard struct {
	db *sql.DB
}

// NewSchemaGuard creates a schema guard over db.
func NewSchemaGuard(db *sql.DB) *SchemaGuard {
	return &SchemaGuard{db: db}
}

// ValidateTable checks that every expected column exists with the expected
// data type. Extra columns are ignored.
func (sg *SchemaGuard) ValidateTable(schema TableSchema) error {
	query := `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := sg.db.Query(query, schema.Name)
	if err != nil {
		return fmt.Errorf("failed to query table schema for %s: %w", schema.Name, err)
	}
	defer rows.Close()

	actual := make(map[string]ColumnType)
	for rows.Next() {
		var colName, dataType, isNullable string
		if err := rows.Scan(&colName, &dataType, &isNullable); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		actual[colName] = ColumnType{
			Name:     colName,
			DataType: dataType,
			Nullable: isNullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read table schema for %s: %w", schema.Name, err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("table %s does not exist", schema.Name)
	}

	for _, expected := range schema.Columns {
		col, ok := actual[expected.Name]
		if !ok {
			return fmt.Errorf("table %s is missing column %s", schema.Name, expected.Name)
		}
		if expected.DataType != "" && col.DataType != expected.DataType {
			return fmt.Errorf("table %s column %s has type %s, expected %s",
				schema.Name, expected.Name, col.DataType, expected.DataType)
		}
	}

	return nil
}
