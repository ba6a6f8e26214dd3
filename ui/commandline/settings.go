// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gomlx/penalties/pkg/ml/params"
	"github.com/pkg/errors"
)

// ParseSettings from settings -- typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "param1=value1;param2=value2;...".
//
// All the parameters "param1", "param2", etc. must be already set with default values
// in the root scope of p. The default values are also used to set the type to which the
// string values will be parsed to.
//
// It updates p accordingly and returns the list of parameter paths set, or an error in case a
// parameter is unknown or the parsing failed.
//
// One can also provide a scope for the parameters: "/decoder/kl_scale=0.1" will work, as long as
// a default "kl_scale" is defined in the root scope.
//
// A setting "file:<path>" reads settings from the file, one or more per line, with lines starting
// with "#" ignored.
//
// For integer types, "_" is removed: it allows one to enter large numbers using it as a separator, like
// in Go. E.g.: 1_000_000 = 1000000.
func ParseSettings(p *params.Params, settings string) (paramsSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		paramsSet, err = parseSetting(p, setting, paramsSet)
		if err != nil {
			return
		}
	}
	return
}

func parseSetting(p *params.Params, setting string, paramsSet []string) (newParamsSet []string, err error) {
	newParamsSet = paramsSet
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return
	}
	if filePath, isFile := strings.CutPrefix(setting, "file:"); isFile {
		return parseSettingsFile(p, filePath, newParamsSet)
	}

	parts := strings.Split(setting, "=")
	if len(parts) != 2 {
		err = errors.Errorf("can't parse setting %q: each setting requires the format \"<param>=<value>\"", setting)
		return
	}
	paramPath, valueStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	paramScope, paramName := params.SplitScope(paramPath)
	if paramScope != "" && !strings.HasPrefix(paramScope, params.ScopeSeparator) {
		err = errors.Errorf("can't set parameter %q because its scope is not absolute (it does not start with %q)",
			paramPath, params.ScopeSeparator)
		return
	}
	root := p.InAbsPath(params.RootScope)
	defaultValue, found := root.GetParam(paramName)
	if !found {
		err = errors.Errorf("can't set parameter %q (scope=%q) because the param %q is not known in the root scope",
			paramPath, paramScope, paramName)
		return
	}

	value, err := parseValue(defaultValue, valueStr)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse value %q for parameter %q (default value is %#v)",
			valueStr, paramPath, defaultValue)
		return
	}
	target := root
	if paramScope != "" {
		target = root.InAbsPath(paramScope)
	}
	target.SetParam(paramName, value)
	newParamsSet = append(newParamsSet, paramPath)
	return
}

func parseSettingsFile(p *params.Params, filePath string, paramsSet []string) ([]string, error) {
	if rest, ok := strings.CutPrefix(filePath, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return paramsSet, errors.Wrapf(err, "failed to expand ~ in %q", filePath)
		}
		filePath = filepath.Join(home, rest)
	}
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return paramsSet, errors.Wrapf(err, "failed to read settings from file %q", filePath)
	}
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, setting := range strings.Split(line, ";") {
			paramsSet, err = parseSetting(p, setting, paramsSet)
			if err != nil {
				return paramsSet, err
			}
		}
	}
	return paramsSet, nil
}

// parseValue parses valueStr to the type of defaultValue.
func parseValue(defaultValue any, valueStr string) (value any, err error) {
	switch v := defaultValue.(type) {
	case int:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), &v)
		value = v
	case int64:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), &v)
		value = v
	case uint64:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), &v)
		value = v
	case float64:
		err = json.Unmarshal([]byte(valueStr), &v)
		value = v
	case float32:
		err = json.Unmarshal([]byte(valueStr), &v)
		value = v
	case bool:
		err = json.Unmarshal([]byte(valueStr), &v)
		value = v
	case string:
		value = valueStr
	case []string:
		value = strings.Split(valueStr, ",")
	case []float64:
		parts := strings.Split(valueStr, ",")
		values := make([]float64, len(parts))
		for ii, part := range parts {
			if err = json.Unmarshal([]byte(strings.TrimSpace(part)), &values[ii]); err != nil {
				return
			}
		}
		value = values
	default:
		err = errors.Errorf("don't know how to parse type %T", defaultValue)
	}
	return
}

// CreateSettingsFlag creates a string flag with the given flagName (if empty it will be named
// "set") and with a description of the parameters currently defined in the root scope of p.
//
// The flag should be created before the call to flag.Parse().
//
// Example usage:
//
//	func main() {
//		p := params.New()
//		regularizers.SetDefaultParams(p)
//		settings := commandline.CreateSettingsFlag(p, "")
//		flag.Parse()
//		paramsSet := must.M1(commandline.ParseSettings(p, *settings))
//		fmt.Println(commandline.SprintModifiedSettings(p, paramsSet))
//		...
//	}
func CreateSettingsFlag(p *params.Params, flagName string) *string {
	if flagName == "" {
		flagName = "set"
	}
	parts := []string{fmt.Sprintf(
		`Set hyperparameters of the regularizers. `+
			`It should be a list of elements "param=value" separated by ";". `+
			`Scoped settings are allowed, by using %q to separate scopes. `+
			`It can also be given an entry like "file:settings_file.txt", in `+
			`which case the file will be read and the settings will be parsed, `+
			`with new-lines working as ";" and lines starting with "#" considered comments. `+
			`Parameters that can be set:`,
		params.ScopeSeparator)}
	p.EnumerateParams(func(scope, key string, value any) {
		if scope != params.RootScope {
			return
		}
		parts = append(parts, fmt.Sprintf("%q: default value is %v", key, value))
	})
	var settings string
	flag.StringVar(&settings, flagName, "", strings.Join(parts, "\n"))
	return &settings
}

// SprintSettings pretty-prints all the hyperparameters into a string.
func SprintSettings(p *params.Params) string {
	var parts []string
	p.EnumerateParams(func(scope, key string, value any) {
		if scope == params.RootScope {
			scope = ""
		}
		parts = append(parts, fmt.Sprintf("\t\"%s/%s\": (%T) %v", scope, key, value, value))
	})
	return strings.Join(parts, "\n")
}

// SprintModifiedSettings pretty-prints the hyperparameters listed in paramsSet, as returned by
// ParseSettings.
func SprintModifiedSettings(p *params.Params, paramsSet []string) string {
	paramsSet = slices.Clone(paramsSet)
	slices.Sort(paramsSet)
	paramsSet = slices.Compact(paramsSet)
	var parts []string
	for _, paramPath := range paramsSet {
		paramScope, paramName := params.SplitScope(paramPath)
		if paramScope == "" {
			paramScope = params.RootScope
		}
		value, found := p.InAbsPath(paramScope).GetParam(paramName)
		if !found {
			continue
		}
		parts = append(parts, fmt.Sprintf("\t%q: (%T) %v", paramPath, value, value))
	}
	return strings.Join(parts, "\n")
}
