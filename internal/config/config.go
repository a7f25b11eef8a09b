// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the balancer's endpoint configuration from a flat
// key=value text file: one pair per line, "#" comments, blank lines
// ignored. This mirrors the original source's config_map_type loader
// rather than any markup format, so it is parsed by hand instead of a
// general-purpose config library.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultPath is used when no override is given on the command line.
const DefaultPath = "balancer.cfg"

// Config holds the two required balancer endpoints.
type Config struct {
	Frontend string
	Backend  string
}

// Load reads and parses path, or DefaultPath if path is empty.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	values, err := parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg := Config{
		Frontend: values["frontend"],
		Backend:  values["backend"],
	}
	if cfg.Frontend == "" {
		return Config{}, fmt.Errorf("config: %s: missing required key %q", path, "frontend")
	}
	if cfg.Backend == "" {
		return Config{}, fmt.Errorf("config: %s: missing required key %q", path, "backend")
	}
	return cfg, nil
}

func parse(r interface{ Read([]byte) (int, error) }) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := splitPair(line)
		if !ok {
			return nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo, line)
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func splitPair(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
