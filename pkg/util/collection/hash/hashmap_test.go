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
	"math/rand/v2"
	"testing"
)

func Test_HashMap_01(t *testing.T) {
	items := []uint{1, 2, 3, 4, 3, 2, 1}
	check_HashMap(t, items)
}

func Test_HashMap_02(t *testing.T) {
	check_HashMap(t, randomUints(10, 32))
}

func Test_HashMap_03(t *testing.T) {
	check_HashMap(t, randomUints(1000, 32))
}

func Test_HashMap_04(t *testing.T) {
	check_HashMap(t, randomUints(100000, 1<<20))
}

func Test_HashMap_Collisions(t *testing.T) {
	// Every key lands in the same bucket
	check_HashMap(t, randomUints(200, 1000), func(k testKey) uint64 { return 0 })
}

// ===================================================================
// Test Helpers
// ===================================================================

type testKey struct {
	value uint
	hash  func(testKey) uint64
}

func (p testKey) Equals(other testKey) bool {
	return p.value == other.value
}

func (p testKey) Hash() uint64 {
	if p.hash != nil {
		return p.hash(p)
	}
	//
	b := NewBuilder()
	b.Write(uint64(p.value))
	//
	return b.Sum()
}

func randomUints(n int, bound uint) []uint {
	rng := rand.New(rand.NewPCG(1, 2))
	items := make([]uint, n)
	//
	for i := range items {
		items[i] = uint(rng.UintN(bound))
	}
	//
	return items
}

func check_HashMap(t *testing.T, items []uint, hash ...func(testKey) uint64) {
	var (
		gmap = initGoMap(items)
		hmap = NewMap[testKey, uint](0)
		fn   func(testKey) uint64
	)
	//
	if len(hash) > 0 {
		fn = hash[0]
	}
	// Insert items
	for key, val := range gmap {
		hmap.Insert(testKey{key, fn}, val)
	}
	// Sanity check number of unique items
	if hmap.Size() != uint(len(gmap)) {
		t.Errorf("expected %d items, got %d: %s", len(gmap), hmap.Size(), hmap.String())
	}
	// Sanity check containership
	for key, val := range gmap {
		if v, ok := hmap.Get(testKey{key, fn}); !ok {
			t.Errorf("missing item %d=>%d", key, val)
		} else if v != val {
			t.Errorf("expecting %d=>%d, got %d=>%d", key, val, key, v)
		}
	}
	// Remove every other key
	removed := 0
	//
	for key := range gmap {
		if key%2 == 0 {
			if !hmap.Remove(testKey{key, fn}) {
				t.Errorf("failed to remove %d", key)
			}
			//
			removed++
		}
	}
	//
	if hmap.Size() != uint(len(gmap)-removed) {
		t.Errorf("expected %d items after removal, got %d", len(gmap)-removed, hmap.Size())
	}
	//
	for key := range gmap {
		if hmap.ContainsKey(testKey{key, fn}) != (key%2 != 0) {
			t.Errorf("incorrect containership for %d after removal", key)
		}
	}
}

func initGoMap(items []uint) map[uint]uint {
	gmap := make(map[uint]uint)
	//
	for _, v := range items {
		gmap[v]++
	}
	//
	return gmap
}
