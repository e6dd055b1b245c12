package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/velouria/commerce/internal/service/models/pricing"
	"github.com/velouria/commerce/pkg/logger"
)

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		panic("error while loading .env file: " + err.Error())
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/commerce")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}

// PricingRules returns the built-in country rules with any overrides from
// the pricing.rules config section applied. Only keys present in the
// config change; everything else keeps its default.
func PricingRules() pricing.Rules {
	rules := pricing.DefaultRules()

	for country, rule := range rules {
		prefix := "pricing.rules." + string(country) + "."

		if v := viper.GetString(prefix + "conversion_factor"); v != "" {
			factor, err := decimal.NewFromString(v)
			if err != nil {
				panic("invalid conversion factor for " + string(country) + ": " + err.Error())
			}
			rule.ConversionFactor = factor
		}
		if viper.IsSet(prefix + "round_places") {
			rule.RoundPlaces = viper.GetInt32(prefix + "round_places")
		}
		if viper.IsSet(prefix + "free_shipping_threshold") {
			rule.FreeShippingThreshold = decimal.NewFromInt(viper.GetInt64(prefix + "free_shipping_threshold"))
		}
		if viper.IsSet(prefix + "flat_shipping_fee") {
			rule.FlatShippingFee = decimal.NewFromInt(viper.GetInt64(prefix + "flat_shipping_fee"))
		}

		rules[country] = rule
	}

	return rules
}
