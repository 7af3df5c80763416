package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tilezen/ogctiles/pkg/model"
	"github.com/tilezen/ogctiles/pkg/provider"
)

// ServerConfig is the container for the collections configuration. It is
// given either as a JSON flag value or as a YAML resources file.
//
// AwsConfig contains session-wide options for s3 backed providers.
// CollectionConfig ties a published collection to its tile provider.
type ServerConfig struct {
	Aws         *AwsConfig                  `json:"aws" yaml:"aws"`
	Collections map[string]CollectionConfig `json:"collections" yaml:"collections"`
}

func (c *ServerConfig) String() string {
	return fmt.Sprintf("%#v", *c)
}

func (c *ServerConfig) Set(line string) error {
	err := json.Unmarshal([]byte(line), c)
	if err != nil {
		return fmt.Errorf("Unable to parse value as a JSON object: %s", err.Error())
	}
	return nil
}

// generic aws configuration applied to whole session
type AwsConfig struct {
	Region *string `json:"region" yaml:"region"`
}

type CollectionConfig struct {
	Collection model.Collection `json:"collection" yaml:"collection"`
	Provider   provider.Config  `json:"provider" yaml:"provider"`

	// S3 key or file path to check for during healthcheck
	Healthcheck string `json:"healthcheck" yaml:"healthcheck"`
}

// LoadFile merges the collections of a YAML resources file into c. Entries
// already present are replaced.
func (c *ServerConfig) LoadFile(path string) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Unable to read config file %s: %w", path, err)
	}

	var fromFile ServerConfig
	if err := yaml.Unmarshal(raw, &fromFile); err != nil {
		return fmt.Errorf("Unable to parse config file %s as YAML: %w", path, err)
	}

	if fromFile.Aws != nil {
		c.Aws = fromFile.Aws
	}
	if c.Collections == nil {
		c.Collections = make(map[string]CollectionConfig, len(fromFile.Collections))
	}
	for id, cc := range fromFile.Collections {
		c.Collections[id] = cc
	}
	return nil
}

// CollectionIDs returns the configured collection ids in sorted order.
func (c *ServerConfig) CollectionIDs() []string {
	ids := make([]string, 0, len(c.Collections))
	for id := range c.Collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *ServerConfig) Validate() error {
	if len(c.Collections) == 0 {
		return fmt.Errorf("You must provide at least one collection.")
	}
	for _, id := range c.CollectionIDs() {
		if c.Collections[id].Provider.Data == "" {
			return fmt.Errorf("Collection %s is missing provider data", id)
		}
	}
	return nil
}
