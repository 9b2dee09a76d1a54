// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package config parses INI option files, such as archive driver options, into
// maps or tagged structs. Section headers are ignored, so options may be
// grouped freely.
package config

import (
	"gopkg.in/ini.v1"
)

// Options returns all key-value options in the provided config file path or
// []byte data, across all sections.
func Options(cfgPathOrData any) (map[string]string, error) {
	cfgFile, err := ini.Load(cfgPathOrData)
	if err != nil {
		return nil, err
	}
	opts := make(map[string]string)
	for _, section := range cfgFile.Sections() {
		for _, key := range section.Keys() {
			opts[key.Name()] = key.String()
		}
	}
	return opts, nil
}

// Parse parses the options in the provided config file path or []byte data
// into obj, a pointer to a struct with `ini` tags. Options in any section are
// mapped.
func Parse(cfgPathOrData, obj any) error {
	opts, err := Options(cfgPathOrData)
	if err != nil {
		return err
	}
	return Map(opts, obj)
}

// Map parses an options map into obj, a pointer to a struct with `ini` tags.
// Values that do not parse as the field type are an error.
func Map(opts map[string]string, obj any) error {
	flat := ini.Empty()
	section := flat.Section(ini.DefaultSection)
	for k, v := range opts {
		if _, err := section.NewKey(k, v); err != nil {
			return err
		}
	}
	return flat.StrictMapTo(obj)
}
