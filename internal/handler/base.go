package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/model"
)

// ParseQueryState reads a screen's query parameters into a QueryState.
// Each filter dimension is read from a query param of the same name;
// "all" (or absence) disables the dimension. Out-of-range paging is
// left to the query engine, which clamps rather than errors.
func ParseQueryState(c *gin.Context, cfg model.EntityConfig, defaultPageSize int) model.QueryState {
	state := model.NewQueryState(defaultPageSize)
	state.Search = c.Query("search")
	state.DateFrom = c.Query("date_from")
	state.DateTo = c.Query("date_to")

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		state.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 {
		state.PageSize = size
	}

	for _, dim := range cfg.FilterDims {
		if v := c.Query(dim); v != "" {
			state.Filters[dim] = v
		}
	}
	return state
}
