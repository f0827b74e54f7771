package model

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

func (Category) TableName() string {
	return "categories"
}

func (Category) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE
	);
	INSERT INTO categories (name)
	VALUES ('Base Ingredients'), ('Drinks'), ('Pastry')
	ON CONFLICT (name) DO NOTHING;`
}
