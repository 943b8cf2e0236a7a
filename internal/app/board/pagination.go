package board

const pageWindow = 10

func lastPageNumber(count, pageAmount int) int {
	if count <= 0 {
		return 0
	}
	return (count-1)/pageAmount + 1
}

// buildPageInfo computes the offset and the navigation block shared by the
// plain and report paginators. Pages are numbered from 1 and the window
// spans up to ten pages; count 0 collapses the window.
func buildPageInfo(page, pageAmount int, offsetReset bool, count int) (int, PageInfo) {
	current := page
	offset := (page - 1) * pageAmount
	if offsetReset {
		current = 1
		offset = 0
	}

	last := lastPageNumber(count, pageAmount)
	left := (current-1)/pageWindow*pageWindow + 1
	right := left + pageWindow - 1
	if right > last {
		right = last
	}

	info := PageInfo{
		CurrentPageNumber: current,
		LastPageNumber:    last,
		LeftPageNumber:    left,
		RightPageNumber:   right,
		Offset:            offset,
	}

	if left > 1 {
		prev := left - 1
		info.PrevPageNumber = &prev
	}
	if right < last {
		next := right + 1
		info.NextPageNumber = &next
	}

	return offset, info
}
