package policy

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/rr-webgate/internal/webgate/domain"
)

// ErrUnsupportedFormat is returned for policy files whose extension is not
// .yaml, .yml, .json or .toml.
var ErrUnsupportedFormat = errors.New("unsupported policy file format")

// document mirrors the on-disk policy file. Each key holds one collection.
type document struct {
	ExactHosts   []string `koanf:"exact_hosts" validate:"dive,required,excludesall=/"`
	HostSuffixes []string `koanf:"host_suffixes" validate:"dive,required,excludesall=/"`
	HostPrefixes []string `koanf:"host_prefixes" validate:"dive,required,excludesall=/"`
	AllowSubs    []string `koanf:"url_substrings_allow" validate:"dive,required"`
	BlockSubs    []string `koanf:"url_substrings_block" validate:"dive,required"`
}

// parserFor picks the koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFile reads an operator policy file and returns its entries in table
// order. Unknown keys are ignored. Values are trimmed; host rules are
// lowercased.
func LoadFile(path string) ([]domain.RuleEntry, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}

	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("failed to decode policy file %s: %w", path, err)
	}
	trimAll(doc.ExactHosts, doc.HostSuffixes, doc.HostPrefixes, doc.AllowSubs, doc.BlockSubs)

	if err := validator.New().Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}

	var out []domain.RuleEntry
	add := func(c domain.RuleCollection, values []string) error {
		for _, v := range values {
			e, err := domain.NewRuleEntry(c, v)
			if err != nil {
				return fmt.Errorf("invalid rule in %s: %w", path, err)
			}
			out = append(out, e)
		}
		return nil
	}
	for _, group := range []struct {
		c      domain.RuleCollection
		values []string
	}{
		{domain.CollectionExactHost, doc.ExactHosts},
		{domain.CollectionHostSuffix, doc.HostSuffixes},
		{domain.CollectionHostPrefix, doc.HostPrefixes},
		{domain.CollectionURLAllow, doc.AllowSubs},
		{domain.CollectionURLBlock, doc.BlockSubs},
	} {
		if err := add(group.c, group.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func trimAll(groups ...[]string) {
	for _, g := range groups {
		for i := range g {
			g[i] = strings.TrimSpace(g[i])
		}
	}
}
