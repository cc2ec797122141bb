package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorConcurrentModification is returned when a transactional re-check finds an
// invariant violated by a concurrent writer (e.g. a duplicate receipt number).
// Callers should retry the whole operation once before surfacing failure.
var ErrorConcurrentModification = errors.New("concurrent modification detected")

// IsDuplicateKeyError reports whether err is a MySQL duplicate-entry error (1062).
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
