package dto

type CreateCategoryInput struct {
	Name string
}
