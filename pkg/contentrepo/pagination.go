package contentrepo

import (
	"fmt"
	"math"
)

// Pagination failure messages.
const (
	msgInvalidPageNumber = "Page number must be greater than 0."
	msgInvalidPageSize   = "Page size must be greater than 0."
	msgPageTooLarge      = "Page number is too large."
)

// PaginationInfo selects one page of an ordered result set.
// Values are immutable and carry no identity; create one per query.
type PaginationInfo struct {
	pageNumber int
	pageSize   int
}

// NewPaginationInfo returns a PaginationInfo for the 1-based pageNumber with pageSize items per page.
// No validation or clamping happens here; see IsValid.
func NewPaginationInfo(pageNumber, pageSize int) PaginationInfo {
	return PaginationInfo{pageNumber: pageNumber, pageSize: pageSize}
}

// PageNumber returns the 1-based page number.
func (p PaginationInfo) PageNumber() int { return p.pageNumber }

// PageSize returns the number of items per page.
func (p PaginationInfo) PageSize() int { return p.pageSize }

// SkipAmount returns how many items precede the page.
func (p PaginationInfo) SkipAmount() int {
	return (p.pageNumber - 1) * p.pageSize
}

// IsValid reports whether the page number and page size are both at least 1
// and the skip amount fits in an int.
// When invalid it returns the reason for the first violation, checking the page number first.
func (p PaginationInfo) IsValid() (bool, string) {
	if p.pageNumber < 1 {
		return false, msgInvalidPageNumber
	}
	if p.pageSize < 1 {
		return false, msgInvalidPageSize
	}
	if p.pageNumber-1 > math.MaxInt/p.pageSize {
		return false, msgPageTooLarge
	}
	return true, ""
}

// IsNotValid is the negation of IsValid.
func (p PaginationInfo) IsNotValid() (bool, string) {
	ok, reason := p.IsValid()
	return !ok, reason
}

// Validate returns Success for a valid value and a Failure carrying the reason otherwise.
func (p PaginationInfo) Validate() Result {
	if ok, reason := p.IsValid(); !ok {
		return Failure(reason)
	}
	return Success()
}

// Window returns the half-open [start, end) bounds of the page within n items.
// An invalid value selects nothing.
func (p PaginationInfo) Window(n int) (int, int) {
	if ok, _ := p.IsValid(); !ok {
		return n, n
	}
	start := p.SkipAmount()
	if start > n || start < 0 {
		start = n
	}
	end := start + p.pageSize
	if end > n || end < start {
		end = n
	}
	return start, end
}

func (p PaginationInfo) String() string {
	return fmt.Sprintf("page %d (size %d)", p.pageNumber, p.pageSize)
}
