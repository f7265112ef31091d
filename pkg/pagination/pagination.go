// Package pagination reads limit/offset query parameters and wraps list
// responses with paging metadata.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=, clamping the limit to
// [1, MaxLimit] and the offset to zero or more.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

func (p Params) HasNext(total int) bool { return p.Offset+p.Limit < total }

func (p Params) HasPrevious() bool { return p.Offset > 0 }

func (p Params) NextOffset() int { return p.Offset + p.Limit }

// PreviousOffset never goes below zero.
func (p Params) PreviousOffset() int {
	if prev := p.Offset - p.Limit; prev > 0 {
		return prev
	}
	return 0
}

// Links holds the neighbouring page URLs of a list response.
type Links struct {
	Self     string `json:"self"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

func (p Params) Links(path string, total int) Links {
	page := func(offset int) string {
		return fmt.Sprintf("%s?limit=%d&offset=%d", path, p.Limit, offset)
	}
	l := Links{Self: page(p.Offset)}
	if p.HasNext(total) {
		l.Next = page(p.NextOffset())
	}
	if p.HasPrevious() {
		l.Previous = page(p.PreviousOffset())
	}
	return l
}

type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
	Links   *Links      `json:"links,omitempty"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// Page builds a Response for the current request, with links relative to
// its path.
func Page(c echo.Context, p Params, data interface{}, total int) *Response {
	resp := NewResponse(data, total, p.Limit, p.Offset)
	links := p.Links(c.Request().URL.Path, total)
	resp.Links = &links
	return resp
}
