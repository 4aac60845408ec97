package flickr

// PerPage is the number of results requested per page.
const PerPage = 21

// MaxResults is the deepest result the search API will page to.
const MaxResults = 4000

// MaxPage is the last page reachable within MaxResults.
const MaxPage = MaxResults / PerPage

// ClampPages limits a reported page count to MaxPage.
func ClampPages(pages int) int {
	return min(pages, MaxPage)
}

// RandomPage picks a page uniformly in [1, maxPage]. pick must return a
// value in [0, n). It returns 0 when maxPage is below 1.
func RandomPage(maxPage int, pick func(n int) int) int {
	if maxPage < 1 {
		return 0
	}
	return pick(maxPage) + 1
}
