// Package selection tracks which listing is selected in the list/map view,
// whether its detail overlay is open and which list page is showing.
package selection

import (
	"homekeys/server/internal/models"
	"homekeys/server/internal/pagination"
)

// Catalog is the read side of the property store the controller navigates
type Catalog interface {
	Len() int
	All() []models.Property
	IndexOf(id string) int
	At(i int) (models.Property, bool)
}

// State is everything a view needs to render selection. The zero value
// (nothing selected, overlay closed) is the initial state apart from Page.
type State struct {
	SelectedID  string `json:"selected_id,omitempty"`
	OverlayOpen bool   `json:"overlay_open"`
	Page        int    `json:"page"`
}

// Controller is not safe for concurrent use; Session serializes access.
type Controller struct {
	catalog  Catalog
	pageSize int
	state    State
}

func NewController(catalog Catalog, pageSize int) *Controller {
	if pageSize < 1 {
		pageSize = pagination.DefaultPageSize
	}
	return &Controller{
		catalog:  catalog,
		pageSize: pageSize,
		state:    State{Page: 1},
	}
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) PageSize() int {
	return c.pageSize
}

// Select makes id the active property and opens the overlay. An id that is
// not in the catalog clears the selection instead and returns false.
func (c *Controller) Select(id string) bool {
	if c.catalog.IndexOf(id) < 0 {
		c.Clear()
		return false
	}
	c.state.SelectedID = id
	c.state.OverlayOpen = true
	return true
}

// Clear drops the selection and closes the overlay
func (c *Controller) Clear() {
	c.state.SelectedID = ""
	c.state.OverlayOpen = false
}

// Next selects the following property. It is a no-op on the last property
// or when nothing is selected.
func (c *Controller) Next() bool {
	return c.step(1)
}

// Previous selects the preceding property. It is a no-op on the first
// property or when nothing is selected.
func (c *Controller) Previous() bool {
	return c.step(-1)
}

func (c *Controller) step(delta int) bool {
	if c.state.SelectedID == "" {
		return false
	}
	current := c.catalog.IndexOf(c.state.SelectedID)
	if current < 0 {
		c.Clear()
		return false
	}
	next, ok := c.catalog.At(current + delta)
	if !ok {
		return false
	}
	c.state.SelectedID = next.ID
	c.state.OverlayOpen = true
	return true
}

// SetPage moves the list to page n, clamped to the available pages
func (c *Controller) SetPage(n int) int {
	c.state.Page = pagination.Clamp(n, c.pageSize, c.catalog.Len())
	return c.state.Page
}

// Selected returns the selected property while the overlay is open
func (c *Controller) Selected() (models.Property, bool) {
	if !c.state.OverlayOpen || c.state.SelectedID == "" {
		return models.Property{}, false
	}
	i := c.catalog.IndexOf(c.state.SelectedID)
	return c.catalog.At(i)
}
