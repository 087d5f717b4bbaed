package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/capsim/capsim/internal/core"
)

// PolicyDocument is one policy-set file on disk.
type PolicyDocument struct {
	// Name labels the set in reports; defaults to the file name.
	Name string `yaml:"name,omitempty"`

	Policies []core.Policy `yaml:"policies"`
}

// User holds the static attributes of one simulated identity.
type User struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name,omitempty"`
	Attributes core.AttributeSet `yaml:"attributes"`
}

// Context is one scenario snapshot of dynamic attributes (location, device
// state, resolved network, clock) that gets merged over every user.
type Context struct {
	Name       string            `yaml:"name"`
	Resource   string            `yaml:"resource,omitempty"`
	Attributes core.AttributeSet `yaml:"attributes"`
}

type UsersDocument struct {
	Users []User `yaml:"users"`
}

type ContextsDocument struct {
	Contexts []Context `yaml:"contexts"`
}

// LoadPolicyDocument reads a policy-set file. Validation against the schema
// happens separately via validation.ValidatePolicies.
func LoadPolicyDocument(path string) (*PolicyDocument, error) {
	var doc PolicyDocument
	if err := loadYAML(path, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(doc.Policies) == 0 {
		return nil, fmt.Errorf("policy file '%s' contains no policies", path)
	}
	return &doc, nil
}

// LoadUsers reads the user document and checks id uniqueness.
func LoadUsers(path string) ([]User, error) {
	var doc UsersDocument
	if err := loadYAML(path, &doc); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(doc.Users))
	for i, u := range doc.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("user #%d in '%s' missing id", i, path)
		}
		if _, dup := seen[u.ID]; dup {
			return nil, fmt.Errorf("user id '%s' is not unique in '%s'", u.ID, path)
		}
		seen[u.ID] = struct{}{}
	}
	return doc.Users, nil
}

// LoadContexts reads the scenario context document and checks name
// uniqueness.
func LoadContexts(path string) ([]Context, error) {
	var doc ContextsDocument
	if err := loadYAML(path, &doc); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(doc.Contexts))
	for i, c := range doc.Contexts {
		if c.Name == "" {
			return nil, fmt.Errorf("context #%d in '%s' missing name", i, path)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("context name '%s' is not unique in '%s'", c.Name, path)
		}
		seen[c.Name] = struct{}{}
	}
	return doc.Contexts, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing '%s': %w", path, err)
	}
	return nil
}
