package memory

import (
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/shopspring/decimal"
)

// Seed fills an empty store with a small demo catalog for local runs.
func Seed(s *Store) {
	today := pricing.DateOf(s.Now())

	phones := s.PutCategory(catalog.Category{Title: "Phones", SortIndex: 1})
	laptops := s.PutCategory(catalog.Category{Title: "Laptops", SortIndex: 2})
	s.PutCategory(catalog.Category{Title: "Cameras", SortIndex: 3})
	android := s.PutSubCategory(catalog.SubCategory{CategoryID: phones.ID, Title: "Android", SortIndex: 1})
	s.PutSubCategory(catalog.SubCategory{CategoryID: phones.ID, Title: "Feature phones", SortIndex: 2})

	p1 := s.PutItem(catalog.Item{
		Name: "Pixel 9", Description: "6.3in OLED, 128GB", Price: decimal.RequireFromString("799.00"),
		Quantity: 12, Published: true, FreeDelivery: true, CategoryID: phones.ID,
		SubCategoryID: &android.ID, SortIndex: 1,
	})
	s.PutItem(catalog.Item{
		Name: "Galaxy A55", Description: "6.6in AMOLED, 256GB", Price: decimal.RequireFromString("449.00"),
		Quantity: 30, Published: true, CategoryID: phones.ID, SubCategoryID: &android.ID, SortIndex: 2,
	})
	l1 := s.PutItem(catalog.Item{
		Name: "ThinkPad X1", Description: "14in, 32GB RAM", Price: decimal.RequireFromString("1899.00"),
		Quantity: 4, Published: true, Limited: true, FreeDelivery: true, CategoryID: laptops.ID,
	})
	s.PutItem(catalog.Item{
		Name: "Prototype Z", Description: "not for sale yet", Price: decimal.RequireFromString("10.00"),
		CategoryID: laptops.ID,
	})

	s.PutSale(pricing.Sale{
		ItemID: p1.ID, SalePrice: decimal.RequireFromString("699.00"),
		DateFrom: today.AddDate(0, 0, -3), DateTo: today.AddDate(0, 0, 7),
	})
	s.PutSpecification(l1.ID, catalog.Specification{Name: "CPU", Value: "Core Ultra 7"})
	s.PutSpecification(l1.ID, catalog.Specification{Name: "Weight", Value: "1.09 kg"})
}
