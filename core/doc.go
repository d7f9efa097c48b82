// Copyright 2025 Poiesic Systems
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

// Package core holds the domain types shared by every other package:
// providers, documents, ingestion requests and the request error taxonomy.
//
// Callers classify failures with errors.Is against the sentinels in
// errors.go. Argument problems additionally carry an *ArgumentError that
// names the offending key:
//
//	var argErr *core.ArgumentError
//	if errors.As(err, &argErr) {
//	    fmt.Println("bad argument:", argErr.Key)
//	}
package core
