package dto

type CategoryFilters struct {
	// Name matches categories containing it, case-insensitively.
	Name string
}
