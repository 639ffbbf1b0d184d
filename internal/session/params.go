package session

import (
	"embed"
	"fmt"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"

	"github.com/dawikk/hubbridge/internal/hub"
)

//go:embed catalog.yaml
var catalogFS embed.FS

// ParamSpec declares one engine parameter: its type, default, and bounds.
// Min/Max apply to "int" parameters, Values to "enum".
type ParamSpec struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Default string   `yaml:"default"`
	Min     int      `yaml:"min"`
	Max     int      `yaml:"max"`
	Values  []string `yaml:"values"`
}

type catalogFile struct {
	Params []ParamSpec `yaml:"params"`
}

// Catalog is the declared parameter set plus current values. Numeric
// assignments clamp silently into range; enum and bool mismatches are
// rejected, since those indicate a client bug rather than a boundary
// slider value.
type Catalog struct {
	specs  []ParamSpec
	values map[string]string
}

// LoadCatalog builds the catalogue from the embedded declaration, or from
// overridePath when non-empty.
func LoadCatalog(overridePath string) (*Catalog, error) {
	raw, err := catalogFS.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	if overridePath != "" {
		raw, err = os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read catalog override: %w", err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Params) == 0 {
		return nil, fmt.Errorf("catalog declares no parameters")
	}

	c := &Catalog{specs: file.Params, values: make(map[string]string, len(file.Params))}
	for _, spec := range file.Params {
		if err := validateSpec(spec); err != nil {
			return nil, err
		}
		c.values[spec.Name] = spec.Default
	}
	return c, nil
}

func validateSpec(spec ParamSpec) error {
	switch spec.Type {
	case "int":
		if spec.Min > spec.Max {
			return fmt.Errorf("param %s: min %d > max %d", spec.Name, spec.Min, spec.Max)
		}
		if _, err := strconv.Atoi(spec.Default); err != nil {
			return fmt.Errorf("param %s: bad default %q", spec.Name, spec.Default)
		}
	case "bool":
		if spec.Default != "true" && spec.Default != "false" {
			return fmt.Errorf("param %s: bad default %q", spec.Name, spec.Default)
		}
	case "enum":
		if len(spec.Values) == 0 {
			return fmt.Errorf("param %s: enum with no values", spec.Name)
		}
		if !containsString(spec.Values, spec.Default) {
			return fmt.Errorf("param %s: default %q not in value set", spec.Name, spec.Default)
		}
	default:
		return fmt.Errorf("param %s: unknown type %q", spec.Name, spec.Type)
	}
	return nil
}

// Set validates and applies one assignment, returning the effective value
// (which may differ from the request after clamping).
func (c *Catalog) Set(name, value string) (string, *hub.ProtocolError) {
	spec, ok := c.spec(name)
	if !ok {
		return "", hub.Errorf(hub.UnknownParameter, "unknown parameter: %s", name)
	}

	switch spec.Type {
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", hub.Errorf(hub.InvalidParameterValue, "parameter %s wants an integer, got %q", name, value)
		}
		if n < spec.Min {
			n = spec.Min
		}
		if n > spec.Max {
			n = spec.Max
		}
		value = strconv.Itoa(n)
	case "bool":
		if value != "true" && value != "false" {
			return "", hub.Errorf(hub.InvalidParameterValue, "parameter %s wants true or false, got %q", name, value)
		}
	case "enum":
		if !containsString(spec.Values, value) {
			return "", hub.Errorf(hub.InvalidParameterValue, "parameter %s does not accept %q", name, value)
		}
	}

	c.values[name] = value
	return value, nil
}

// Get returns the current value of a declared parameter.
func (c *Catalog) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// GetInt returns a numeric parameter's current value, falling back to its
// declared default when unparsable.
func (c *Catalog) GetInt(name string) int {
	spec, ok := c.spec(name)
	if !ok {
		return 0
	}
	if n, err := strconv.Atoi(c.values[name]); err == nil {
		return n
	}
	n, _ := strconv.Atoi(spec.Default)
	return n
}

// GetBool reports whether a bool parameter is currently "true".
func (c *Catalog) GetBool(name string) bool {
	return c.values[name] == "true"
}

// Events renders the catalogue as the param response lines of the "hub"
// handshake, in declaration order with current values.
func (c *Catalog) Events() []hub.ParamEvent {
	out := make([]hub.ParamEvent, 0, len(c.specs))
	for _, spec := range c.specs {
		out = append(out, hub.ParamEvent{
			Name:   spec.Name,
			Value:  c.values[spec.Name],
			Type:   spec.Type,
			Min:    spec.Min,
			Max:    spec.Max,
			Values: spec.Values,
		})
	}
	return out
}

func (c *Catalog) spec(name string) (ParamSpec, bool) {
	for _, s := range c.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
