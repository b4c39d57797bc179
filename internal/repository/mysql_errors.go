package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL error 1062: duplicate entry for a unique key. Unique keys enforce
// the one-like-per-user and one-achievement-per-user invariants, so this
// error is part of normal control flow rather than a failure.
const duplicateEntryErr = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntryErr
}
