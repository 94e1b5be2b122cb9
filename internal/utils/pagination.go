package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/worktrackhq/work-tracking-api/internal/constants"
)

// PageParams is the page window parsed from a list request's query string.
type PageParams struct {
	Page  int
	Limit int
}

// Offset is the row offset of the window's first record.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta is the pagination block attached to list responses.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ParsePageParams reads page and limit from the query string. Missing or
// out-of-range values fall back to the defaults rather than erroring.
func ParsePageParams(c *gin.Context) PageParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > constants.MaxPageLimit {
		limit = constants.DefaultPageLimit
	}

	return PageParams{Page: page, Limit: limit}
}
