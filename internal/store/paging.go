package store

// PageCount returns the number of pages needed to show total records
// at pageSize records per page.
func PageCount(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Skip converts a 0-based page index into the offset passed to FindPage.
func Skip(page, pageSize int) int {
	if page < 0 || pageSize < 0 {
		return 0
	}
	return page * pageSize
}
