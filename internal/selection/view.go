package selection

import (
	"homekeys/server/internal/models"
	"homekeys/server/internal/pagination"
)

// ListItem is a property as shown in the list panel
type ListItem struct {
	models.Property
	Highlighted bool `json:"highlighted"`
}

// View is the rendered list/overlay for one selection state
type View struct {
	State       State            `json:"state"`
	Items       []ListItem       `json:"items"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
	TotalPages  int              `json:"total_pages"`
	TotalItems  int              `json:"total_items"`
	Overlay     *models.Property `json:"overlay,omitempty"`
	HasPrevious bool             `json:"has_previous"`
	HasNext     bool             `json:"has_next"`
}

// Render derives the view from the catalog and a state. It has no side effects.
func Render(catalog Catalog, state State, pageSize int) View {
	all := catalog.All()
	page := pagination.Paginate(state.Page, pageSize, all)

	items := make([]ListItem, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, ListItem{Property: p, Highlighted: p.ID == state.SelectedID})
	}

	v := View{
		State:      state,
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	}

	if state.SelectedID != "" {
		if i := catalog.IndexOf(state.SelectedID); i >= 0 {
			if state.OverlayOpen {
				p, _ := catalog.At(i)
				v.Overlay = &p
			}
			v.HasPrevious = i > 0
			v.HasNext = i < catalog.Len()-1
		}
	}
	return v
}
