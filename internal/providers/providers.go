// Package providers parses the on-disk provider and model configuration
// files. The format is key=value lines with entries separated by a "===="
// line; keys and ids are case-insensitive, comments start with '#'.
// Malformed files, missing required keys, duplicate keys and duplicate
// entry ids all fail the parse with the offending line number: a broken
// file is a deployment error and blocks startup.
package providers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider is one completion API endpoint entry from provider.txt.
type Provider struct {
	Name    string
	APIKey  string
	BaseURL string
}

// Model is one model entry from models.txt.
type Model struct {
	Provider string
	ModelID  string
}

type entry map[string]string

func parseEntries(path string, required []string, idKey, label string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s config file %q: %w", label, path, err)
	}
	defer f.Close()

	var (
		entries []entry
		current = entry{}
		seenIDs = map[string]bool{}
		lineno  int
	)

	finish := func(where string) error {
		if len(current) == 0 {
			return nil
		}
		id := strings.ToLower(current[strings.ToLower(idKey)])
		if id == "" {
			return fmt.Errorf("missing %q in %s entry at %s", idKey, label, where)
		}
		if seenIDs[id] {
			return fmt.Errorf("duplicate %s %q at %s", label, id, where)
		}
		for _, k := range required {
			if _, ok := current[k]; !ok {
				return fmt.Errorf("missing key %q in %s entry at %s", k, label, where)
			}
		}
		entries = append(entries, current)
		seenIDs[id] = true
		current = entry{}
		return nil
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "====" {
			if err := finish(fmt.Sprintf("line %d", lineno)); err != nil {
				return nil, err
			}
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed line in %s config at line %d: %q", label, lineno, line)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if _, dup := current[k]; dup {
			return nil, fmt.Errorf("duplicate key %q in %s entry at line %d", k, label, lineno)
		}
		current[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s config: %w", label, err)
	}
	if err := finish("end of file"); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadProviders parses provider.txt under dir.
func LoadProviders(dir string) ([]Provider, error) {
	raw, err := parseEntries(filepath.Join(dir, "provider.txt"), []string{"name", "apikey", "baseurl"}, "name", "provider")
	if err != nil {
		return nil, err
	}
	out := make([]Provider, 0, len(raw))
	for _, e := range raw {
		out = append(out, Provider{Name: e["name"], APIKey: e["apikey"], BaseURL: e["baseurl"]})
	}
	return out, nil
}

// LoadModels parses models.txt under dir.
func LoadModels(dir string) ([]Model, error) {
	raw, err := parseEntries(filepath.Join(dir, "models.txt"), []string{"provider", "model-id"}, "model-id", "model")
	if err != nil {
		return nil, err
	}
	out := make([]Model, 0, len(raw))
	for _, e := range raw {
		out = append(out, Model{Provider: e["provider"], ModelID: e["model-id"]})
	}
	return out, nil
}

// Default returns the first configured provider/model pair.
func Default(dir string) (Provider, Model, error) {
	provs, err := LoadProviders(dir)
	if err != nil {
		return Provider{}, Model{}, err
	}
	models, err := LoadModels(dir)
	if err != nil {
		return Provider{}, Model{}, err
	}
	if len(provs) == 0 || len(models) == 0 {
		return Provider{}, Model{}, fmt.Errorf("no providers or models configured under %s", dir)
	}
	return provs[0], models[0], nil
}
