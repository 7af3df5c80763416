package provider

// Config is the provider block of a collection definition.
type Config struct {
	Name     string       `json:"name" yaml:"name"`
	Data     string       `json:"data" yaml:"data"`
	Format   FormatConfig `json:"format" yaml:"format"`
	MimeType string       `json:"mimetype" yaml:"mimetype"`
	Schemes  []string     `json:"schemes" yaml:"schemes"`
}

type FormatConfig struct {
	Name string `json:"name" yaml:"name"`
}

func (c Config) validate() error {
	if c.Data == "" {
		return &ConfigurationError{Field: "data", Reason: "missing"}
	}
	if c.Format.Name == "" {
		return &ConfigurationError{Field: "format.name", Reason: "missing"}
	}
	if c.MimeType == "" {
		return &ConfigurationError{Field: "mimetype", Reason: "missing"}
	}
	return nil
}
