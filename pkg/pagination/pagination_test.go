package pagination

import "testing"

func TestPaginationParams_Validate(t *testing.T) {
	tests := []struct {
		name        string
		in          PaginationParams
		wantPage    int
		wantPerPage int
	}{
		{"zero values", PaginationParams{}, 1, DefaultPerPage},
		{"negative page", PaginationParams{Page: -3, PerPage: 10}, 1, 10},
		{"over max", PaginationParams{Page: 2, PerPage: 500}, 2, MaxPerPage},
		{"within range", PaginationParams{Page: 4, PerPage: 25}, 4, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Validate()
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Errorf("got page=%d per_page=%d, want page=%d per_page=%d", p.Page, p.PerPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestPaginationParams_Offset(t *testing.T) {
	p := PaginationParams{Page: 3, PerPage: 20}
	if got := p.Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	if p.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", p.TotalPages)
	}
	if !p.HasNext || !p.HasPrev {
		t.Errorf("expected both HasNext and HasPrev on the middle page, got %+v", p)
	}

	empty := NewPagination(1, 0, 0)
	if empty.PerPage != DefaultPerPage || empty.TotalPages != 0 || empty.HasNext {
		t.Errorf("unexpected metadata for empty set: %+v", empty)
	}
}

func TestNewPaginatedResult_NilItems(t *testing.T) {
	result := NewPaginatedResult[string](nil, NewPagination(1, 10, 0))
	if result.Items == nil {
		t.Fatal("expected non-nil items slice")
	}
	if len(result.Items) != 0 {
		t.Errorf("expected empty items, got %d", len(result.Items))
	}
}
