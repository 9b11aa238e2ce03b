/*
Copyright 2025 The iosched Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package env reads typed settings from environment variables, falling back to defaults on absence or parse errors.
package env

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/go-logr/logr"

	logutil "github.com/clookd/iosched/pkg/iosched/util/logging"
)

func lookup[T any](key string, def T, parse func(string) (T, error), logger logr.Logger) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
		logger.V(logutil.DEBUG).Info("Environment variable unset, keeping default", "key", key, "default", def)
		return def
	}
	v, err := parse(raw)
	if err != nil {
		logger.Error(err, "Ignoring invalid environment variable", "key", key, "value", raw, "default", def)
		return def
	}
	logger.V(logutil.DEFAULT).Info("Environment override applied", "key", key, "value", v)
	return v
}

// GetEnvInt returns the integer stored in key, or defaultVal.
func GetEnvInt(key string, defaultVal int, logger logr.Logger) int {
	return lookup(key, defaultVal, strconv.Atoi, logger)
}

// GetEnvBool accepts the values understood by strconv.ParseBool.
func GetEnvBool(key string, defaultVal bool, logger logr.Logger) bool {
	return lookup(key, defaultVal, strconv.ParseBool, logger)
}

// GetEnvString returns the raw value of key, or defaultVal when unset. An empty value is kept.
func GetEnvString(key string, defaultVal string, logger logr.Logger) string {
	return lookup(key, defaultVal, func(s string) (string, error) { return s, nil }, logger)
}

// GetEnvChoice is GetEnvString restricted to the allowed values. Matching is case sensitive.
func GetEnvChoice(key string, defaultVal string, allowed []string, logger logr.Logger) string {
	return lookup(key, defaultVal, func(s string) (string, error) {
		if slices.Contains(allowed, s) {
			return s, nil
		}
		return "", fmt.Errorf("%q is not one of %v", s, allowed)
	}, logger)
}
