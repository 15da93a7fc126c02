// Package settings reads engine configuration from the host's key-value
// settings store: boolean enable flags and numeric thresholds per detector,
// plus the identities of the configured layers and fields. Every key has a
// default; a missing layer or field key disables the detectors that need
// it rather than producing an error.
package settings

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/geoarch/fieldqa/errors"
)

// Settings is the immutable configuration snapshot one detection run works
// from.
type Settings struct {
	EnableDistanceWarnings                         bool    `mapstructure:"enable_distance_warnings"`
	DistanceMaxDistance                            float64 `mapstructure:"distance_max_distance"`
	EnableHeightWarnings                           bool    `mapstructure:"enable_height_warnings"`
	HeightMaxDistance                              float64 `mapstructure:"height_max_distance"`
	HeightMaxDifference                            float64 `mapstructure:"height_max_difference"`
	EnableBoundsWarnings                           bool    `mapstructure:"enable_bounds_warnings"`
	BoundsMaxDistance                              float64 `mapstructure:"bounds_max_distance"`
	EnableDuplicateTotalStationIdentifiersWarnings bool    `mapstructure:"enable_duplicate_total_station_identifiers_warnings"`
	EnableMissingTotalStationWarnings              bool    `mapstructure:"enable_missing_total_station_warnings"`
	EnableSkippedNumbersWarnings                   bool    `mapstructure:"enable_skipped_numbers_warnings"`

	RecordingAreasLayer     string `mapstructure:"recording_areas_layer"`
	ObjectsLayer            string `mapstructure:"objects_layer"`
	FeaturesLayer           string `mapstructure:"features_layer"`
	SmallFindsLayer         string `mapstructure:"small_finds_layer"`
	TotalStationPointsLayer string `mapstructure:"total_station_points_layer"`
	ObjectsNumberField      string `mapstructure:"objects_number_field"`
}

// SetDefaults configures the default for every engine key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("enable_distance_warnings", true)
	v.SetDefault("distance_max_distance", 0.05)
	v.SetDefault("enable_height_warnings", true)
	v.SetDefault("height_max_distance", 1.0)
	v.SetDefault("height_max_difference", 0.2)
	v.SetDefault("enable_bounds_warnings", true)
	v.SetDefault("bounds_max_distance", 0.2)
	v.SetDefault("enable_duplicate_total_station_identifiers_warnings", true)
	v.SetDefault("enable_missing_total_station_warnings", true)
	v.SetDefault("enable_skipped_numbers_warnings", true)

	v.SetDefault("recording_areas_layer", "")
	v.SetDefault("objects_layer", "")
	v.SetDefault("features_layer", "")
	v.SetDefault("small_finds_layer", "")
	v.SetDefault("total_station_points_layer", "")
	v.SetDefault("objects_number_field", "")
}

// Default returns the settings snapshot with every key at its default.
func Default() *Settings {
	v := viper.New()
	SetDefaults(v)
	s, _ := FromViper(v)
	return s
}

// FromViper unmarshals a settings snapshot from a prepared Viper instance.
func FromViper(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}
	return &s, nil
}

// LoadFromFile reads a TOML settings file, applying defaults for missing
// keys and FIELDQA_* environment overrides.
func LoadFromFile(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("FIELDQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read settings file %s", path)
	}
	return FromViper(v)
}
