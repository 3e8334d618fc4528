package util

import (
	"strconv"

	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage bounds the page number so the offset cannot overflow.
	MaxPage = 100000
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate normalises page and size and returns the matching offset and limit.
func Calculate(page, size int) (offset int, limit int) {
	page = clampPage(page)
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return (page - 1) * size, size
}

func Meta(page, limit int, total int64) transport.PageMeta {
	page = clampPage(page)
	if limit < 1 {
		limit = DefaultPageSize
	}
	offset := (page - 1) * limit
	return transport.PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}
