package static

import (
	"time"

	"github.com/voltmart/storefront/internal/domain"
)

func money(value string) *domain.Money {
	m := domain.MustMoney(value)
	return &m
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// SampleProducts returns a fresh copy of the built-in catalog used for seeding and as the
// read-only fallback when the live store is unreachable.
func SampleProducts() []domain.Product {
	products := []domain.Product{
		{
			ID:            "64b000000000000000000001",
			Name:          "Apex Pro X Phone",
			Description:   `6.7" AMOLED 120Hz display, triple-lens camera, 5G, 256GB storage, 45W fast charging.`,
			Price:         domain.MustMoney("1099"),
			PreviousPrice: money("1199"),
			Brand:         "Apex",
			Category:      domain.CategoryPhones,
			Image:         "https://images.unsplash.com/photo-1510554310709-16f33b29d89d?auto=format&fit=crop&w=900&q=80",
			Stock:         42,
			Featured:      true,
			Rating:        4.8,
			Tags:          []string{"120Hz AMOLED", "Triple camera", "5G ready"},
			CreatedAt:     day(2024, time.January, 10),
		},
		{
			ID:            "64b000000000000000000002",
			Name:          "NovaBook Ultra 15",
			Description:   "Intel Core i9, 32GB RAM, 1TB NVMe, RTX 4070 graphics, 4K OLED panel, Thunderbolt 4.",
			Price:         domain.MustMoney("2499"),
			PreviousPrice: money("2699"),
			Brand:         "NovaTech",
			Category:      domain.CategoryLaptops,
			Image:         "https://images.unsplash.com/photo-1484807352052-23338990c6c6?auto=format&fit=crop&w=900&q=80",
			Stock:         18,
			Featured:      true,
			Rating:        4.9,
			Tags:          []string{"RTX graphics", "4K OLED", "Thunderbolt 4"},
			CreatedAt:     day(2024, time.February, 2),
		},
		{
			ID:          "64b000000000000000000003",
			Name:        "SoundSphere Max Earbuds",
			Description: "Adaptive ANC, spatial audio, 36-hour battery with wireless charging, IPX5 rated.",
			Price:       domain.MustMoney("249"),
			Brand:       "SoundSphere",
			Category:    domain.CategoryAudio,
			Image:       "https://images.unsplash.com/photo-1583394293214-28ded15ee548?auto=format&fit=crop&w=900&q=80",
			Stock:       120,
			Featured:    true,
			Rating:      4.7,
			Tags:        []string{"Adaptive ANC", "Spatial audio", "Wireless charging"},
			CreatedAt:   day(2024, time.January, 25),
		},
		{
			ID:          "64b000000000000000000004",
			Name:        "PulseWatch Titanium",
			Description: "Always-on LTPO display, ECG monitoring, dual-frequency GPS, 3-day battery life.",
			Price:       domain.MustMoney("499"),
			Brand:       "Pulse",
			Category:    domain.CategoryWearables,
			Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?auto=format&fit=crop&w=900&q=80",
			Stock:       75,
			Featured:    true,
			Rating:      4.6,
			Tags:        []string{"ECG", "Titanium build", "Dual-frequency GPS"},
			CreatedAt:   day(2024, time.March, 1),
		},
		{
			ID:          "64b000000000000000000005",
			Name:        "FluxPad S12 Tablet",
			Description: `12.4" mini-LED ProMotion display, stylus support, 16GB RAM, 512GB storage.`,
			Price:       domain.MustMoney("899"),
			Brand:       "Flux",
			Category:    domain.CategoryTablets,
			Image:       "https://images.unsplash.com/photo-1611186871348-b1ce696e52c9?auto=format&fit=crop&w=900&q=80",
			Stock:       65,
			Rating:      4.5,
			Tags:        []string{"Mini-LED", "Stylus included", "ProMotion display"},
			CreatedAt:   day(2024, time.February, 14),
		},
		{
			ID:          "64b000000000000000000006",
			Name:        "Lumina Smart Speaker Duo",
			Description: "High-fidelity stereo smart speakers with voice assistant, adaptive room tuning, Wi-Fi 6.",
			Price:       domain.MustMoney("349"),
			Brand:       "Lumina",
			Category:    domain.CategorySmartHome,
			Image:       "https://images.unsplash.com/photo-1582719478250-c89cae4dc85b?auto=format&fit=crop&w=900&q=80",
			Stock:       90,
			Rating:      4.4,
			Tags:        []string{"Smart assistant", "Adaptive tuning", "Stereo pair"},
			CreatedAt:   day(2024, time.January, 5),
		},
	}
	for i := range products {
		products[i].UpdatedAt = products[i].CreatedAt
	}
	return products
}
