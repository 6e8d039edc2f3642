package form

import (
	"context"
	"sort"
	"strings"

	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
)

// SearchForms filters, sorts newest first and pages forms. It does not modify
// its input and returns the same page for the same arguments.
func SearchForms(forms []*types.Form, q types.FormSearchQuery) types.FormPage {
	needle := strings.ToLower(q.Query)
	matched := make([]*types.Form, 0, len(forms))
	for _, f := range forms {
		if needle != "" &&
			!strings.Contains(strings.ToLower(f.Title), needle) &&
			!strings.Contains(strings.ToLower(f.Description), needle) {
			continue
		}
		if q.Status != "" && f.Status != q.Status {
			continue
		}
		if q.CreatedBy != "" && f.CreatedBy != q.CreatedBy {
			continue
		}
		matched = append(matched, f)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	info, start, end := types.Paginate(len(matched), q.Page, q.PerPage)
	page := make([]*types.Form, 0, end-start)
	for _, f := range matched[start:end] {
		page = append(page, f.Copy())
	}
	return types.FormPage{Forms: page, PageInfo: info}
}

// Search runs q against the database when a searcher is configured and falls
// back to local state if that fails.
func (m *FormModel) Search(ctx context.Context, q types.FormSearchQuery) types.FormPage {
	if m.ctx.Searcher != nil {
		page, err := m.ctx.Searcher.SearchForms(ctx, q)
		if err == nil {
			return *page
		}
		logger.GetLogger().Warnw("Remote form search failed, searching local state", "error", err)
	}
	return SearchForms(m.ctx.State.Snapshot().Forms, q)
}
