package gormpersistence

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry 是 MySQL 违反唯一约束时的错误码。
const mysqlDuplicateEntry = 1062

// isDuplicateEntryError 判断是否为 MySQL 唯一约束冲突。
func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
