// Package repository 基于 gorm 的持久化层, 记录不存在时返回 nil, nil
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// first 查询单条记录
func first[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var out T
	if err := query.First(&out, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
