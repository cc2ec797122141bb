package models

import (
	"gorm.io/gorm"
)

// PageInfo describes offset pagination for REST list endpoints.
type PageInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// FetchPage runs the prepared query with a count + limit/offset pass and scans
// the rows into []*T. Ordering must already be set on dbCtx by the caller.
func FetchPage[T any](dbCtx *gorm.DB, page, pageSize int) ([]*T, *PageInfo, error) {
	page, pageSize = normalizePage(page, pageSize)

	var model T
	var total int64
	if err := dbCtx.Session(&gorm.Session{}).Model(&model).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	rows := make([]*T, 0, pageSize)
	if err := dbCtx.Limit(pageSize).Offset((page - 1) * pageSize).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	return rows, &PageInfo{Page: page, PageSize: pageSize, Total: total}, nil
}
