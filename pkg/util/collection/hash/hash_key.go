// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package hash

// Hasher provides a generic definition of a hashing function suitable for use
// within the hashtable.
type Hasher[T any] interface {
	// Check whether two items are equal (or not).
	Equals(T) bool
	// Return a suitable hashcode.
	Hash() uint64
}

// Offset and prime for the 64-bit FNV1a hash.
const (
	offset64 uint64 = 14695981039346656037
	prime64  uint64 = 1099511628211
)

// Builder accumulates an FNV1a hash over a sequence of words.
type Builder struct {
	hash uint64
}

// NewBuilder constructs an empty hash builder.
func NewBuilder() Builder {
	return Builder{offset64}
}

// Write mixes a given word into this hash.
func (p *Builder) Write(word uint64) {
	for i := 0; i < 64; i += 8 {
		p.hash ^= (word >> i) & 0xff
		p.hash *= prime64
	}
}

// Sum returns the accumulated hash.
func (p *Builder) Sum() uint64 {
	return p.hash
}
