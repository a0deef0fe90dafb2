package config

import (
	"regexp"
	"sync"

	"github.com/mitchellh/copystructure"
)

// OptionType defines the value type of an option.
type OptionType uint8

// Various attribute options. Use ExternalOptType for extended types in the frontend.
const (
	optTypeAny         OptionType = 0
	OptTypeString      OptionType = 1
	OptTypeStringArray OptionType = 2
	OptTypeInt         OptionType = 3
	OptTypeBool        OptionType = 4
)

func getTypeName(t OptionType) string {
	switch t {
	case optTypeAny:
		return "any"
	case OptTypeString:
		return "string"
	case OptTypeStringArray:
		return "[]string"
	case OptTypeInt:
		return "int"
	case OptTypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ExpertiseLevel allows to group settings by user expertise.
type ExpertiseLevel uint8

// Expertise Levels.
const (
	ExpertiseLevelUser      ExpertiseLevel = 0
	ExpertiseLevelExpert    ExpertiseLevel = 1
	ExpertiseLevelDeveloper ExpertiseLevel = 2
)

// Option describes a configuration option.
type Option struct {
	sync.Mutex

	// Name holds the name of the configuration options.
	// It should be human readable and is mainly used for
	// presentation purposes.
	Name string
	// Key holds the database path for the option. It should
	// follow the path format `category/sub/key`.
	Key string
	// Description holds a human readable description of the
	// option and what is does.
	Description string
	// Help may hold a long version of the description.
	Help string
	// OptType defines the type of the option.
	OptType OptionType
	// ExpertiseLevel can be used to set the required expertise
	// level for the option to be displayed to a user.
	ExpertiseLevel ExpertiseLevel
	// RequiresRestart should be set to true if a modification of
	// the options value requires a restart of the whole
	// application to take effect.
	RequiresRestart bool
	// DefaultValue holds the default value of the option.
	DefaultValue interface{}
	// ValidationRegex may contain a regular expression used to
	// validate the value of option. If the option type is set to
	// OptTypeStringArray the validation regex is applied to all
	// entries of the string slice.
	ValidationRegex string
	// ValidationFunc may contain a function to validate more complex values.
	// The error is returned beyond the scope of this package and may be
	// displayed to a user.
	ValidationFunc func(value interface{}) error `json:"-"`

	// activeValue holds the value of the option if set by the user.
	activeValue *valueCache
	// activeDefaultValue holds the value of the default value
	// of the option, if overwritten.
	activeDefaultValue *valueCache
	// activeFallbackValue holds the validated DefaultValue.
	activeFallbackValue *valueCache
	// compiledRegex is the compiled ValidationRegex.
	compiledRegex *regexp.Regexp
}

// OptionExport is an exported, self-contained view of an option.
type OptionExport struct {
	Name            string
	Key             string
	Description     string
	Help            string `json:",omitempty"`
	OptType         string `json:"Type"`
	ExpertiseLevel  ExpertiseLevel
	RequiresRestart bool `json:",omitempty"`
	DefaultValue    interface{}
	Value           interface{} `json:",omitempty"`
	ValidationRegex string      `json:",omitempty"`
}

// IsSetByUser returns whether the option has been set by the user.
func (option *Option) IsSetByUser() bool {
	option.Lock()
	defer option.Unlock()

	return option.activeValue != nil
}

// UserValue returns the value set by the user or nil if the value has not
// been changed from the default.
func (option *Option) UserValue() interface{} {
	option.Lock()
	defer option.Unlock()

	if option.activeValue == nil {
		return nil
	}
	return option.activeValue.getData(option)
}

// Export exports an option to an OptionExport. Values are deep copied, so
// that the export does not share state with the option.
func (option *Option) Export() (*OptionExport, error) {
	option.Lock()
	defer option.Unlock()

	export := &OptionExport{
		Name:            option.Name,
		Key:             option.Key,
		Description:     option.Description,
		Help:            option.Help,
		OptType:         getTypeName(option.OptType),
		ExpertiseLevel:  option.ExpertiseLevel,
		RequiresRestart: option.RequiresRestart,
		ValidationRegex: option.ValidationRegex,
	}

	defaultValue := option.DefaultValue
	if option.activeDefaultValue != nil {
		defaultValue = option.activeDefaultValue.getData(option)
	}
	copied, err := copystructure.Copy(defaultValue)
	if err != nil {
		return nil, err
	}
	export.DefaultValue = copied

	if option.activeValue != nil {
		copied, err = copystructure.Copy(option.activeValue.getData(option))
		if err != nil {
			return nil, err
		}
		export.Value = copied
	}

	return export, nil
}
