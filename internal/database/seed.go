package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bouquet/internal/config"
	"bouquet/internal/domain"
	"bouquet/internal/repository"
)

// SeedDiscounts заводит коды скидок из конфигурации; повторный запуск обновляет их
func SeedDiscounts(ctx context.Context, seeder repository.DiscountSeeder, in []config.SeedDiscount, log zerolog.Logger) error {
	for _, sd := range in {
		d, err := discountFromSeed(sd)
		if err != nil {
			return err
		}
		if err := seeder.Upsert(ctx, &d); err != nil {
			return fmt.Errorf("seed discount %s: %w", sd.Code, err)
		}
		log.Info().Str("code", d.Code).Int64("id", d.ID).Msg("discount seeded")
	}
	return nil
}

func discountFromSeed(sd config.SeedDiscount) (domain.Discount, error) {
	if err := sd.Validate(); err != nil {
		return domain.Discount{}, err
	}
	amount := decimal.RequireFromString(sd.Amount)
	begins, ends, err := sd.Window()
	if err != nil {
		return domain.Discount{}, err
	}
	typ := domain.DiscountAmountOff
	if sd.Type == "percentage" {
		typ = domain.DiscountPercentageOff
	}
	return domain.Discount{Code: sd.Code, Type: typ, Amount: amount, Begins: begins, Ends: ends}, nil
}
