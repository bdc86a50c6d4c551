package models

// Category groups expenses. Names are unique per user.
type Category struct {
	Base
	UserID string `gorm:"type:uuid;not null;uniqueIndex:uq_categories_user_name" json:"user_id"`
	Name   string `gorm:"not null;uniqueIndex:uq_categories_user_name" json:"name"`
	Icon   string `json:"icon"`
}

// DefaultCategory is a category seeded for every new user.
type DefaultCategory struct {
	Name string
	Icon string
}

// DefaultCategories are created at registration.
var DefaultCategories = []DefaultCategory{
	{Name: "Groceries", Icon: "ShoppingCart"},
	{Name: "Dining Out", Icon: "UtensilsCrossed"},
	{Name: "Transport", Icon: "Car"},
	{Name: "Entertainment", Icon: "Film"},
	{Name: "Utilities", Icon: "Lightbulb"},
	{Name: "Housing", Icon: "Home"},
	{Name: "Subscriptions", Icon: "Repeat"},
	{Name: "Shopping", Icon: "ShoppingBag"},
	{Name: "Health", Icon: "HeartPulse"},
	{Name: "Travel", Icon: "Plane"},
}
