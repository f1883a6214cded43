package service

import (
	"time"

	"campus-market/internal/domain"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func newPageResult[T any](items []T, total int64, page domain.Page) *domain.PageResult[T] {
	return &domain.PageResult[T]{
		Items: items,
		Total: total,
		Page:  page,
	}
}
