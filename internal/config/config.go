// Package config defines the planner's configuration and the functions that
// load, normalize and validate it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/fields"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/internal/server"
	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"github.com/KatTate/katalyst-franchise-planner/pkg/mathutil"
	"github.com/KatTate/katalyst-franchise-planner/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for the franchise planner.
type Configuration struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Server     server.Config    `yaml:"server,omitempty"`
	Guardian   GuardianConfig   `yaml:"guardian,omitempty"`
	Projection ProjectionConfig `yaml:"projection,omitempty"`
	Brand      BrandConfig      `yaml:"brand,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// GuardianConfig times the change-signal pulse.
type GuardianConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
	Pulse    time.Duration `yaml:"pulse,omitempty"`
}

// ProjectionConfig sizes the reference projector.
type ProjectionConfig struct {
	Months int `yaml:"months,omitempty"`
}

// BrandConfig is the brand every new plan is seeded from. Field values are
// written the way a franchisee enters them: dollars for currency, percent for
// percentages (28 means 28%), whole numbers for integers.
type BrandConfig struct {
	ID                      string                        `yaml:"id"`
	Name                    string                        `yaml:"name"`
	Fields                  map[string]map[string]float64 `yaml:"fields"`
	FacilitiesDecomposition []float64                     `yaml:"facilitiesDecomposition"`
	StartupCosts            []StartupCostConfig           `yaml:"startupCosts"`
}

// StartupCostConfig is one default startup cost item. Amount is in dollars.
type StartupCostConfig struct {
	ID     string  `yaml:"id"`
	Label  string  `yaml:"label"`
	Amount float64 `yaml:"amount"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	configuration := Configuration{Server: server.DefaultConfig()}
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	if err := configuration.normalize(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func (c *Configuration) normalize() error {
	if err := c.Server.Normalize(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if c.Guardian.Debounce == 0 {
		c.Guardian.Debounce = constants.DefaultGuardianDebounce
	}
	if c.Guardian.Pulse == 0 {
		c.Guardian.Pulse = constants.DefaultGuardianPulse
	}
	if c.Projection.Months <= 0 {
		c.Projection.Months = constants.DefaultProjectionMonths
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	return nil
}

// BrandDefaults converts the brand section into stored units. Keys are
// matched case-insensitively because viper lowercases map keys; unknown
// categories and fields are skipped and reported by ValidateConfiguration.
func (c *Configuration) BrandDefaults() plan.BrandDefaults {
	defaults := plan.BrandDefaults{
		Fields: make(map[plan.Category]map[string]float64),
	}
	for rawCategory, values := range c.Brand.Fields {
		section, ok := sectionFor(rawCategory)
		if !ok {
			continue
		}
		stored := make(map[string]float64, len(values))
		for rawName, value := range values {
			meta, ok := fieldFor(section, rawName)
			if !ok || meta.List {
				continue
			}
			stored[meta.Name] = toStored(value, meta.Format)
		}
		defaults.Fields[section.Category] = stored
	}
	for _, dollars := range c.Brand.FacilitiesDecomposition {
		defaults.FacilitiesDecomposition = append(defaults.FacilitiesDecomposition, mathutil.DollarsToCents(dollars))
	}
	for _, item := range c.Brand.StartupCosts {
		defaults.StartupCosts = append(defaults.StartupCosts, plan.StartupCostLineItem{
			ID:     item.ID,
			Label:  item.Label,
			Amount: int64(mathutil.DollarsToCents(item.Amount)),
		})
	}
	return defaults
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		warnings = append(warnings, err.Error())
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, err.Error())
	}
	warnings = append(warnings, validation.ValidateGuardianTiming(c.Guardian.Debounce, c.Guardian.Pulse)...)

	if c.Brand.ID == "" {
		warnings = append(warnings, "Brand has no id - new plans will not record their brand")
	}

	defaults := c.BrandDefaults()
	for rawCategory, values := range c.Brand.Fields {
		section, ok := sectionFor(rawCategory)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Brand category '%s' is not a known category", rawCategory))
			continue
		}
		for rawName := range values {
			meta, ok := fieldFor(section, rawName)
			if !ok || meta.List {
				warnings = append(warnings, fmt.Sprintf("Brand field '%s.%s' is not a known field", section.Category, rawName))
				continue
			}
			warnings = append(warnings, validation.ValidateDefaultValue(
				string(section.Category), meta.Name, string(meta.Format), defaults.Fields[section.Category][meta.Name])...)
		}
	}

	for _, section := range fields.Sections() {
		for _, meta := range section.Fields {
			if meta.List {
				if len(defaults.FacilitiesDecomposition) == 0 {
					warnings = append(warnings, fmt.Sprintf("Brand has no default for '%s.%s'", section.Category, meta.Name))
				}
				continue
			}
			if _, ok := defaults.Fields[section.Category][meta.Name]; !ok {
				warnings = append(warnings, fmt.Sprintf("Brand has no default for '%s.%s'", section.Category, meta.Name))
			}
		}
	}

	seen := make(map[string]bool)
	for _, item := range defaults.StartupCosts {
		warnings = append(warnings, validation.ValidateStartupCost(item.Label, item.Amount)...)
		if item.ID == "" {
			warnings = append(warnings, fmt.Sprintf("Startup cost '%s' has no id - one is generated per plan", item.Label))
		} else if seen[item.ID] {
			warnings = append(warnings, fmt.Sprintf("Startup cost id '%s' is used more than once", item.ID))
		}
		seen[item.ID] = true
	}

	return warnings
}

func sectionFor(raw string) (fields.Section, bool) {
	for _, section := range fields.Sections() {
		if strings.EqualFold(string(section.Category), raw) {
			return section, true
		}
	}
	return fields.Section{}, false
}

func fieldFor(section fields.Section, raw string) (fields.Metadata, bool) {
	for _, meta := range section.Fields {
		if strings.EqualFold(meta.Name, raw) {
			return meta, true
		}
	}
	return fields.Metadata{}, false
}

func toStored(value float64, f fields.Format) float64 {
	switch f {
	case fields.FormatCurrency:
		return mathutil.DollarsToCents(value)
	case fields.FormatPercentage:
		return mathutil.PercentToFraction(value)
	}
	return value
}
