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

// Package settings holds the process-wide policy configuration used when
// building requests and normalising responses.
//
// Settings live in a Store. Configure applies a partial update atomically;
// Get returns a deep copy, so a request that captured a snapshot is never
// affected by a later Configure. The package-level functions operate on a
// default store shared by the whole process:
//
//	err := settings.Configure(
//	    settings.WithDefaultTimeout(10*time.Second),
//	    settings.WithTrustedDomains("example.com"),
//	)
//
// Options can also be read from a YAML file (LoadFile) or from HTTPWRAP_*
// environment variables (FromEnv).
package settings
