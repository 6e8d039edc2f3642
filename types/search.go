package types

// FormSearchQuery filters and pages the form list.
type FormSearchQuery struct {
	Query     string     `form:"query"`
	Status    FormStatus `form:"status"`
	CreatedBy string     `form:"createdBy"`
	Page      int        `form:"page"`
	PerPage   int        `form:"perPage"`
}

// FormPage is one page of search results.
type FormPage struct {
	Forms []*Form `json:"forms"`
	PageInfo
}

// SubmissionFilter filters and pages the submission list.
type SubmissionFilter struct {
	FormID  string           `form:"formId"`
	Status  SubmissionStatus `form:"status"`
	Query   string           `form:"query"`
	Page    int              `form:"page"`
	PerPage int              `form:"perPage"`
}

// SubmissionPage is one page of submissions.
type SubmissionPage struct {
	Submissions []*Submission `json:"submissions"`
	PageInfo
}

// DefaultPerPage applies when a page size is zero or negative.
const DefaultPerPage = 10

// Paginate clamps page into [1, totalPages] (totalPages is at least 1 for
// clamping) and returns the page info plus the half-open slice bounds.
func Paginate(total, page, perPage int) (info PageInfo, start, end int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	totalPages := (total + perPage - 1) / perPage
	maxPage := totalPages
	if maxPage < 1 {
		maxPage = 1
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	start = (page - 1) * perPage
	end = start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return PageInfo{TotalCount: total, CurrentPage: page, TotalPages: totalPages}, start, end
}
