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


// Package sbp implements the binary wire protocol used to move
// concepts, associations, paths, queries, results, vector searches,
// learn requests, and errors between the reasoning layer and the
// storage layer.
//
// Every message is a 16-byte header followed by a type-specific
// payload:
//
//	offset  size  field
//	0       4     magic (little-endian)
//	4       1     version
//	5       1     message type
//	6       1     flags
//	7       1     reserved
//	8       8     payload length (little-endian)
//
// Fixed-width numeric fields are little-endian. Variable-length fields
// are length-prefixed UTF-8 byte runs. Embedding vectors are a fixed
// count of 32-bit floats with no compression. Optional fields are
// preceded by a single presence byte. Concept ids are fixed 16-byte
// values, which keeps an Association payload a fixed 57 bytes.
//
// Decoders validate the magic number and the declared payload length
// before parsing the body; truncated or malformed buffers are rejected
// with a protocol error and never partially applied. Encode and decode
// are pure, stateless, and safe for concurrent use.
//
// This protocol never crosses the external API boundary; external
// interfaces use a self-describing text format.
package sbp
