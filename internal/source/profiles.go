package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads selector profiles from a YAML file:
//
//	profiles:
//	  - name: blogtruyen
//	    series_title: h1.entry-title
//	    unit_links: "#list-chapters .title a[href]"
//	    unit_title: h1
//	    assets: "#content img"
//	    asset_attrs: [src]
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	out := make(map[string]Profile, len(file.Profiles))
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate profile %q", path, p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}
