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

import (
	"fmt"
	"iter"
	"strings"
)

// Map is a hashmap which uses the Hasher interface for keys, rather than Go's
// builtin equality.  This is necessary for keys containing slices, such as the
// operands of an e-node.
type Map[K Hasher[K], V any] struct {
	// items maps hashcodes to *buckets* of items.
	buckets map[uint64]hashMapBucket[K, V]
	// number of items
	size uint
}

// NewMap creates a new Map with a given initial capacity.
func NewMap[K Hasher[K], V any](size uint) *Map[K, V] {
	items := make(map[uint64]hashMapBucket[K, V], size)
	return &Map[K, V]{items, 0}
}

// Size returns the number of unique items stored in this Map.
func (p *Map[K, V]) Size() uint {
	return p.size
}

// Insert a new key-value pair into this map, replacing any existing value for
// an equal key.  Returns true if the key was already present.
func (p *Map[K, V]) Insert(key K, value V) bool {
	var (
		hash = key.Hash()
		b    = p.buckets[hash]
	)
	//
	r := b.insert(key, value)
	p.buckets[hash] = b
	//
	if !r {
		p.size++
	}
	//
	return r
}

// Remove the item for a given key, returning true if it was present.
func (p *Map[K, V]) Remove(key K) bool {
	hash := key.Hash()
	//
	if b, ok := p.buckets[hash]; ok && b.remove(key) {
		if len(b.keys) == 0 {
			delete(p.buckets, hash)
		} else {
			p.buckets[hash] = b
		}
		//
		p.size--
		//
		return true
	}
	//
	return false
}

// ContainsKey checks whether the given key is contained in this map, or not.
func (p *Map[K, V]) ContainsKey(key K) bool {
	_, ok := p.Get(key)
	return ok
}

// Get returns the value associated with a given key (if any).
func (p *Map[K, V]) Get(key K) (V, bool) {
	var empty V
	//
	if bucket, ok := p.buckets[key.Hash()]; ok {
		return bucket.get(key)
	}
	//
	return empty, false
}

// All iterates the key-value pairs of this map, in no particular order.
func (p *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, b := range p.buckets {
			for i, k := range b.keys {
				if !yield(k, b.values[i]) {
					return
				}
			}
		}
	}
}

func (p *Map[K, V]) String() string {
	var r strings.Builder
	//
	first := true
	//
	r.WriteString("{")
	//
	for k, v := range p.All() {
		if !first {
			r.WriteString(",")
		}
		//
		first = false
		//
		r.WriteString(fmt.Sprintf("%v:=%v", any(k), any(v)))
	}
	//
	r.WriteString("}")
	//
	return r.String()
}

// ============================================================================
// Bucket
// ============================================================================

type hashMapBucket[K Hasher[K], V any] struct {
	keys   []K
	values []V
}

// Insert a new item into this bucket, returning true if it was already present.
func (b *hashMapBucket[K, V]) insert(key K, value V) bool {
	for i, k := range b.keys {
		if key.Equals(k) {
			b.values[i] = value
			return true
		}
	}
	//
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	//
	return false
}

func (b *hashMapBucket[K, V]) remove(key K) bool {
	for i, k := range b.keys {
		if key.Equals(k) {
			n := len(b.keys) - 1
			b.keys[i], b.values[i] = b.keys[n], b.values[n]
			b.keys, b.values = b.keys[:n], b.values[:n]
			//
			return true
		}
	}
	//
	return false
}

func (b *hashMapBucket[K, V]) get(key K) (V, bool) {
	var empty V
	//
	for i, k := range b.keys {
		if key.Equals(k) {
			return b.values[i], true
		}
	}
	//
	return empty, false
}
