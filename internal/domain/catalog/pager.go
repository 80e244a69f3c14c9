package catalog

// TotalPages = ceil(len/size), минимум 1 (даже для пустого прайса).
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage приводит номер страницы к [1, TotalPages].
func ClampPage(page, n, size int) int {
	total := TotalPages(n, size)
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

func (c *Catalog) TotalPages(size int) int { return TotalPages(len(c.entries), size) }

func (c *Catalog) ClampPage(page, size int) int { return ClampPage(page, len(c.entries), size) }

// Page возвращает срез [(page-1)*size, page*size), обрезанный по границам прайса.
func (c *Catalog) Page(page, size int) []Entry {
	if size <= 0 || page < 1 {
		return []Entry{}
	}
	start := (page - 1) * size
	if start >= len(c.entries) {
		return []Entry{}
	}
	end := start + size
	if end > len(c.entries) {
		end = len(c.entries)
	}
	out := make([]Entry, 0, end-start)
	for _, e := range c.entries[start:end] {
		out = append(out, cloneEntry(e))
	}
	return out
}
