package pagination_test

import (
	"net/url"
	"testing"

	"github.com/genomecurate/curia/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"valid values unchanged", 2, 50, 2, 50},
		{"zero page becomes one", 0, 50, 1, 50},
		{"negative page becomes one", -3, 50, 1, 50},
		{"zero size gets default", 1, 0, 1, 20},
		{"oversized clamped to max", 1, 500, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pagination.PageRequest{Page: tt.page, PageSize: tt.pageSize}
			req.Normalize(testConfig())

			if req.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", req.Page, tt.wantPage)
			}
			if req.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", req.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 25}
	if got := req.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "brca")
	values.Set("sort", "-updatedAt")

	req := pagination.PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("page/size = %d/%d, want 2/10", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "brca" {
		t.Errorf("Search = %v, want brca", req.Search)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "updatedAt" || !req.Sort[0].Descending {
		t.Errorf("Sort = %v, want [-updatedAt]", req.Sort)
	}
}

func TestPageRequestFromQueryDefaults(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{}, testConfig())

	if req.Page != 1 || req.PageSize != 20 {
		t.Errorf("page/size = %d/%d, want 1/20", req.Page, req.PageSize)
	}
	if req.Search != nil {
		t.Errorf("Search = %v, want nil", req.Search)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		pageSize       int
		wantTotalPages int
	}{
		{"exact pages", 100, 20, 5},
		{"partial last page", 101, 20, 6},
		{"empty result", 0, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{}, tt.total, 1, tt.pageSize)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
		})
	}
}

func TestNewPageResultNilData(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)
	if result.Data == nil {
		t.Error("Data is nil, want empty slice")
	}
}
