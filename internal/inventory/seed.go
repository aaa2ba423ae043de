package inventory

// Seed loads the demo catalog used by development environments.
func (s *Service) Seed() error {
	samples := []CreateProductInput{
		{
			Code:         "PROD-001",
			Name:         "Laptop Dell XPS 15",
			Description:  "High-performance laptop",
			Category:     "Electronics",
			Unit:         "piece",
			CostPrice:    15000,
			SellingPrice: 20000,
			TaxRate:      14,
			Stock:        10,
			ReorderLevel: 5,
		},
		{
			Code:         "PROD-002",
			Name:         "Wireless Mouse",
			Description:  "Ergonomic wireless mouse",
			Category:     "Electronics",
			Unit:         "piece",
			CostPrice:    150,
			SellingPrice: 250,
			TaxRate:      14,
			Stock:        50,
			ReorderLevel: 10,
		},
		{
			Code:         "PROD-003",
			Name:         "Office Chair",
			Description:  "Comfortable office chair",
			Category:     "Furniture",
			Unit:         "piece",
			CostPrice:    1200,
			SellingPrice: 1800,
			TaxRate:      14,
			Stock:        20,
			ReorderLevel: 5,
		},
	}
	for _, input := range samples {
		if _, err := s.CreateProduct(input); err != nil {
			return err
		}
	}
	s.logger.Info("seeded sample products", "count", len(samples))
	return nil
}
