package generator

// paginate splits list into pages of perPage posts. A non-positive perPage
// keeps everything on one page, and an empty list still yields one page.
func paginate(list []*PostData, perPage int) [][]*PostData {
	if perPage <= 0 || len(list) <= perPage {
		return [][]*PostData{list}
	}
	pages := make([][]*PostData, 0, (len(list)+perPage-1)/perPage)
	for start := 0; start < len(list); start += perPage {
		end := start + perPage
		if end > len(list) {
			end = len(list)
		}
		pages = append(pages, list[start:end])
	}
	return pages
}
