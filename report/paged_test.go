package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageInfoOffset(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0, PageInfo{Entries: 10, Page: 1}.Offset())
	assert.Equal(10, PageInfo{Entries: 10, Page: 2}.Offset())
	assert.Equal(45, PageInfo{Entries: 15, Page: 4}.Offset())
}

func TestPageInfoLimited(t *testing.T) {
	assert := assert.New(t)

	assert.True(PageInfo{Entries: 10, Page: 1}.Limited())
	assert.False(PageInfo{Entries: 0, Page: 1}.Limited(), "entries 0 disables paging")
	assert.False(PageInfo{Entries: 10, Page: 0}.Limited())
}

func TestNewPagedTotalPages(t *testing.T) {
	assert := assert.New(t)

	page := NewPaged(PageInfo{Entries: 10, Page: 1}, 25, []int{})
	assert.Equal(int64(3), page.TotalPages)

	page = NewPaged(PageInfo{Entries: 10, Page: 1}, 30, []int{})
	assert.Equal(int64(3), page.TotalPages)

	page = NewPaged(PageInfo{Entries: 10, Page: 1}, 0, []int{})
	assert.Equal(int64(0), page.TotalPages)

	page = NewPaged(PageInfo{}, 25, []int{})
	assert.Equal(int64(1), page.TotalPages, "unpaged results are one page")
}
