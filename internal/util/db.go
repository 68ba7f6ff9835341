package util

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// IsDuplicateKeyError 识别唯一索引冲突。
// gorm 开启 TranslateError 后返回 ErrDuplicatedKey，
// 事务内裸 SQL 则会拿到 MySQL 1062，两种都要认。
func IsDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
