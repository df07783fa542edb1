// Copyright 2025 Tom Barlow
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

package request

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	wraperrors "github.com/tombee/httpwrap/pkg/errors"
)

// mapConfig is the generic-mapping form of a request.
type mapConfig struct {
	Method        string         `mapstructure:"method"`
	URL           string         `mapstructure:"url"`
	Options       map[string]any `mapstructure:"options"`
	AllowInternal bool           `mapstructure:"allow_internal"`
}

// FromMap builds a request from a generic mapping with the keys method,
// url, options and allow_internal. Unknown keys are an error. An
// allow_internal value of true is equivalent to WithAllowInternal.
func FromMap(ctx context.Context, m map[string]any, options ...Option) (*Config, error) {
	var mc mapConfig
	if err := decode(m, &mc); err != nil {
		return nil, &wraperrors.ValidationError{
			Field:   "config",
			Message: fmt.Sprintf("invalid request mapping: %v", err),
			Cause:   err,
		}
	}

	opts, err := OptionsFromMap(mc.Options)
	if err != nil {
		return nil, err
	}

	if mc.AllowInternal {
		options = append(options, WithAllowInternal())
	}
	return New(ctx, mc.Method, mc.URL, opts, options...)
}

// OptionsFromMap decodes request options from a generic mapping. Unknown
// keys, values of the wrong type and non-positive timeouts are errors.
// Timeouts may be durations ("2s") or numbers of seconds.
func OptionsFromMap(m map[string]any) (Options, error) {
	var opts Options
	if len(m) == 0 {
		return opts, nil
	}

	if err := decode(m, &opts); err != nil {
		return Options{}, &wraperrors.ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("invalid request options: %v", err),
			Cause:   err,
		}
	}

	if raw, ok := m["timeout"]; ok && raw != nil && opts.Timeout <= 0 {
		return Options{}, &wraperrors.ValidationError{
			Field:   "timeout",
			Message: "timeout must be a positive number",
		}
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func decode(input any, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      output,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// secondsToDurationHookFunc converts plain numbers into durations measured
// in seconds.
func secondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case float32:
			return time.Duration(float64(v) * float64(time.Second)), nil
		}
		return data, nil
	}
}
