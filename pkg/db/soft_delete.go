package db

import (
	"fmt"
	"strings"
)

// SoftDeleteQuery builds SELECT queries that exclude tombstoned rows.
// Reports are never physically removed; every read path goes through this
// builder so deleted reports stay invisible while their review trail remains.
type SoftDeleteQuery struct {
	baseQuery    string
	tableName    string
	deleteColumn string
	whereClause  []string
	orderBy      string
	limit        int
	params       []interface{}
}

// NewSoftDeleteQuery creates a builder around baseQuery (SELECT ... FROM t).
func NewSoftDeleteQuery(baseQuery, tableName string) *SoftDeleteQuery {
	return &SoftDeleteQuery{
		baseQuery:    baseQuery,
		tableName:    tableName,
		deleteColumn: "deleted_at",
	}
}

// Where adds a WHERE condition.
func (q *SoftDeleteQuery) Where(condition string, args ...interface{}) *SoftDeleteQuery {
	q.whereClause = append(q.whereClause, condition)
	q.params = append(q.params, args...)
	return q
}

// OrderBy sets the ORDER BY clause.
func (q *SoftDeleteQuery) OrderBy(clause string) *SoftDeleteQuery {
	q.orderBy = clause
	return q
}

// Limit bounds the result size.
func (q *SoftDeleteQuery) Limit(n int) *SoftDeleteQuery {
	q.limit = n
	return q
}

// Build assembles the final query with the tombstone filter appended.
func (q *SoftDeleteQuery) Build() (string, []interface{}) {
	where := append([]string{}, q.whereClause...)
	where = append(where, fmt.Sprintf("%s.%s IS NULL", q.tableName, q.deleteColumn))

	query := q.baseQuery + " WHERE " + strings.Join(where, " AND ")
	if q.orderBy != "" {
		query += " ORDER BY " + q.orderBy
	}
	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	return query, q.params
}

// OnlyTrashed rewrites a query to return only tombstoned rows.
func OnlyTrashed(query, tableName, deleteColumn string) string {
	if strings.Contains(strings.ToUpper(query), "WHERE") {
		return fmt.Sprintf("%s AND %s.%s IS NOT NULL", query, tableName, deleteColumn)
	}
	return fmt.Sprintf("%s WHERE %s.%s IS NOT NULL", query, tableName, deleteColumn)
}
