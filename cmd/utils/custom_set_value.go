package utils

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

func SetConfigOptionMessengerType(co *config.ConfigOption) error {
	senderType := viper.GetString(co.Name)

	messengerType, err := message.ParseMessengerType(senderType)
	if err != nil {
		return fmt.Errorf("couldn't parse messenger type: %w", err)
	}

	*(co.ConfigKey.(*message.MessengerType)) = messengerType
	return nil
}

func SetConfigOptionMetricType(co *config.ConfigOption) error {
	metricType := viper.GetString(co.Name)

	metricTypeParsed, err := monitor.ParseMetricType(metricType)
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}

	*(co.ConfigKey.(*monitor.MetricType)) = metricTypeParsed
	return nil
}

func SetConfigOptionCrashTrackerType(co *config.ConfigOption) error {
	ctType := viper.GetString(co.Name)

	ctTypeParsed, err := crashtracker.ParseCrashTrackerType(ctType)
	if err != nil {
		return fmt.Errorf("couldn't parse crash tracker type: %w", err)
	}

	*(co.ConfigKey.(*crashtracker.CrashTrackerType)) = ctTypeParsed
	return nil
}

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevel, err := logrus.ParseLevel(viper.GetString(co.Name))
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	if config.IsExplicitlySet(co) {
		log.Debugf("Setting log level to: %q", logLevel)
		log.DefaultLogger.SetLevel(*key)
	} else {
		log.Debugf("Using default log level: %q", logLevel)
	}
	return nil
}

func SetCorsAllowedOrigins(co *config.ConfigOption) error {
	corsAllowedOriginsOptions := viper.GetString(co.Name)
	if corsAllowedOriginsOptions == "" {
		return fmt.Errorf("cors allowed addresses cannot be empty")
	}

	corsAllowedOrigins := strings.Split(corsAllowedOriginsOptions, ",")
	for i, address := range corsAllowedOrigins {
		address = strings.TrimSpace(address)
		corsAllowedOrigins[i] = address
		if address == "*" {
			log.Warn(`The value "*" for the CORS Allowed Origins is too permissive and not recommended.`)
			continue
		}
		if _, err := url.ParseRequestURI(address); err != nil {
			return fmt.Errorf("error parsing cors addresses: %w", err)
		}
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}
	*key = corsAllowedOrigins

	return nil
}

// SetConfigOptionBaseDomain normalizes the base domain new tenants get their subdomain under and checks it is a valid
// hostname.
func SetConfigOptionBaseDomain(co *config.ConfigOption) error {
	baseDomain := strings.Trim(utils.NormalizeHost(viper.GetString(co.Name)), ".")
	if err := utils.ValidateDNS(baseDomain); err != nil {
		return fmt.Errorf("invalid base domain %q: %w", baseDomain, err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = baseDomain

	return nil
}

// SetConfigOptionDuration parses values like "30s" or "2m" into a time.Duration. Negative durations are rejected.
func SetConfigOptionDuration(co *config.ConfigOption) error {
	raw := strings.TrimSpace(viper.GetString(co.Name))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("couldn't parse duration %q: %w", raw, err)
	}
	if d < 0 {
		return fmt.Errorf("duration %q cannot be negative", raw)
	}

	key, ok := co.ConfigKey.(*time.Duration)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a time.Duration, but got a %T instead", co.ConfigKey)
	}
	*key = d

	return nil
}
