package rainbow

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	driversM         sync.RWMutex
	hashDrivers      = make(map[string]HashDriver)
	reductionDrivers = make(map[string]ReductionDriver)
)

// A HashDriver is a provider for a HashOracle implementation.
type HashDriver interface {
	// NewOracle creates a new oracle from a yaml-encoded representation of
	// its options.
	NewOracle(cfg []byte) (HashOracle, error)
}

// A ReductionDriver is a provider for a ReductionPolicy implementation.
type ReductionDriver interface {
	// NewPolicy creates a new policy from a yaml-encoded representation of
	// its options.
	NewPolicy(cfg []byte) (ReductionPolicy, error)
}

// RegisterHash makes a HashDriver available by the provided name.
//
// If called twice with the same name, the name is blank, or if the provided
// driver is nil, this function panics.
func RegisterHash(name string, d HashDriver) {
	if name == "" {
		panic("rainbow: could not register a hash driver with an empty name")
	}
	if d == nil {
		panic("rainbow: could not register a nil hash driver")
	}

	driversM.Lock()
	defer driversM.Unlock()

	if _, dup := hashDrivers[name]; dup {
		panic("rainbow: RegisterHash called twice for " + name)
	}
	hashDrivers[name] = d
}

// RegisterReduction makes a ReductionDriver available by the provided name.
// It panics under the same conditions as RegisterHash.
func RegisterReduction(name string, d ReductionDriver) {
	if name == "" {
		panic("rainbow: could not register a reduction driver with an empty name")
	}
	if d == nil {
		panic("rainbow: could not register a nil reduction driver")
	}

	driversM.Lock()
	defer driversM.Unlock()

	if _, dup := reductionDrivers[name]; dup {
		panic("rainbow: RegisterReduction called twice for " + name)
	}
	reductionDrivers[name] = d
}

// NewHashOracle instantiates the registered hash driver called name.
//
// If the driver does not exist, returns ErrDriverDoesNotExist.
func NewHashOracle(name string, optionBytes []byte) (HashOracle, error) {
	driversM.RLock()
	d, ok := hashDrivers[name]
	driversM.RUnlock()
	if !ok {
		return nil, fmt.Errorf("hash %q: %w", name, ErrDriverDoesNotExist)
	}
	return d.NewOracle(optionBytes)
}

// NewReductionPolicy instantiates the registered reduction driver called
// name.
//
// If the driver does not exist, returns ErrDriverDoesNotExist.
func NewReductionPolicy(name string, optionBytes []byte) (ReductionPolicy, error) {
	driversM.RLock()
	d, ok := reductionDrivers[name]
	driversM.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reduction %q: %w", name, ErrDriverDoesNotExist)
	}
	return d.NewPolicy(optionBytes)
}

// HashNames returns the sorted names of all registered hash drivers.
func HashNames() []string {
	driversM.RLock()
	defer driversM.RUnlock()
	return sortedKeys(hashDrivers)
}

// ReductionNames returns the sorted names of all registered reduction
// drivers.
func ReductionNames() []string {
	driversM.RLock()
	defer driversM.RUnlock()
	return sortedKeys(reductionDrivers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DriverConfig is the generic configuration format used for all registered
// drivers.
type DriverConfig struct {
	Name    string                 `yaml:"name" mapstructure:"name"`
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`
}

// optionBytes marshals the options back into bytes for the driver.
func (c DriverConfig) optionBytes() ([]byte, error) {
	if len(c.Options) == 0 {
		return nil, nil
	}
	return yaml.Marshal(c.Options)
}

// HashOracleFromConfig is a utility function for initializing a HashOracle
// from its configuration.
func HashOracleFromConfig(cfg DriverConfig) (HashOracle, error) {
	optionBytes, err := cfg.optionBytes()
	if err != nil {
		return nil, err
	}
	return NewHashOracle(cfg.Name, optionBytes)
}

// ReductionPolicyFromConfig is a utility function for initializing a
// ReductionPolicy from its configuration.
func ReductionPolicyFromConfig(cfg DriverConfig) (ReductionPolicy, error) {
	optionBytes, err := cfg.optionBytes()
	if err != nil {
		return nil, err
	}
	return NewReductionPolicy(cfg.Name, optionBytes)
}
