// Copyright 2026 The Authors.
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

package cfg

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// hookFunc trims surrounding whitespace from every incoming string field
// before mapstructure assigns it, the same decode-time cleanup role the
// teacher's cfg.hookFunc plays for its own string-typed fields.
func hookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.String {
			return data, nil
		}
		return strings.TrimSpace(data.(string)), nil
	}
}

// normalizeLogging rewrites the case-sensitive logging knobs after
// decoding; mapstructure's DecodeHookFuncType only sees types, not field
// names, so the severity/format case convention is applied here instead.
func normalizeLogging(c *Config) {
	c.Logging.Severity = strings.ToUpper(c.Logging.Severity)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}
