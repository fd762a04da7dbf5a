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
package target

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sys/cpu"
)

// Arch identifies an instruction set family.
type Arch uint8

const (
	// X64 is the x86-64 instruction set.
	X64 Arch = iota
	// Aarch64 is the 64-bit ARM instruction set.
	Aarch64
	// Riscv64 is the 64-bit RISC-V instruction set.
	Riscv64
	// Pulley32 is the portable bytecode with 32-bit pointers.
	Pulley32
	// Pulley64 is the portable bytecode with 64-bit pointers.
	Pulley64
)

type archInfo struct {
	name     string
	ptr      uint
	features []string
}

var archs = []archInfo{
	{"x64", 64, []string{"sse41", "avx", "avx2", "avx512f", "avx512dq", "avx512vl", "bmi1", "bmi2", "lzcnt",
		"popcnt"}},
	{"aarch64", 64, []string{"lse", "fp16"}},
	{"riscv64", 64, []string{"zba", "zbb", "zbs", "v"}},
	{"pulley32", 32, nil},
	{"pulley64", 64, nil},
}

func (a Arch) String() string {
	return archs[a].name
}

// PointerWidth returns the width of a pointer (in bits) on this architecture.
func (a Arch) PointerWidth() uint {
	return archs[a].ptr
}

// Features returns the optional features which can be enabled for this
// architecture.
func (a Arch) Features() []string {
	return archs[a].features
}

// ParseArch parses the name of an architecture.
func ParseArch(name string) (Arch, bool) {
	for i, a := range archs {
		if a.name == name {
			return Arch(i), true
		}
	}
	//
	return 0, false
}

// Descriptor identifies a target instruction set and the optional features
// available on it.  A descriptor is immutable once constructed.
type Descriptor struct {
	arch     Arch
	features *bitset.BitSet
}

// New constructs a descriptor for a given architecture and set of features.
func New(arch Arch, features ...string) (Descriptor, error) {
	var (
		known = arch.Features()
		set   = bitset.New(uint(len(known)))
	)
	//
	for _, f := range features {
		i := slices.Index(known, f)
		if i < 0 {
			return Descriptor{}, fmt.Errorf("unknown feature \"%s\" for %s", f, arch)
		}
		//
		set.Set(uint(i))
	}
	//
	return Descriptor{arch, set}, nil
}

// Parse a descriptor from its textual form, such as "x64 sse41 avx2" or
// "pulley64".  The name "host" describes the machine this is running on.
func Parse(text string) (Descriptor, error) {
	fields := strings.Fields(text)
	//
	if len(fields) == 0 {
		return Descriptor{}, fmt.Errorf("empty target")
	} else if fields[0] == "host" {
		if len(fields) > 1 {
			return Descriptor{}, fmt.Errorf("host target cannot have explicit features")
		}
		//
		return Host()
	}
	//
	arch, ok := ParseArch(fields[0])
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown architecture \"%s\"", fields[0])
	}
	//
	return New(arch, fields[1:]...)
}

// Host returns the descriptor for the machine this is running on.
func Host() (Descriptor, error) {
	var features []string
	//
	add := func(name string, present bool) {
		if present {
			features = append(features, name)
		}
	}
	//
	switch runtime.GOARCH {
	case "amd64":
		add("sse41", cpu.X86.HasSSE41)
		add("avx", cpu.X86.HasAVX)
		add("avx2", cpu.X86.HasAVX2)
		add("avx512f", cpu.X86.HasAVX512F)
		add("avx512dq", cpu.X86.HasAVX512DQ)
		add("avx512vl", cpu.X86.HasAVX512VL)
		add("bmi1", cpu.X86.HasBMI1)
		add("bmi2", cpu.X86.HasBMI2)
		add("popcnt", cpu.X86.HasPOPCNT)
		//
		return New(X64, features...)
	case "arm64":
		add("lse", cpu.ARM64.HasATOMICS)
		add("fp16", cpu.ARM64.HasFPHP)
		//
		return New(Aarch64, features...)
	case "riscv64":
		add("zba", cpu.RISCV64.HasZba)
		add("zbb", cpu.RISCV64.HasZbb)
		add("zbs", cpu.RISCV64.HasZbs)
		add("v", cpu.RISCV64.HasV)
		//
		return New(Riscv64, features...)
	}
	// Anything else runs the portable bytecode.
	if strings.HasSuffix(runtime.GOARCH, "64") {
		return New(Pulley64)
	}
	//
	return New(Pulley32)
}

// Arch returns the architecture of this target.
func (d Descriptor) Arch() Arch {
	return d.arch
}

// Has checks whether a given feature is available.  Besides the optional
// features of the architecture, the architecture name itself and the pointer
// width ("ptr32" or "ptr64") are always available.
func (d Descriptor) Has(name string) bool {
	switch name {
	case d.arch.String():
		return true
	case "ptr32":
		return d.arch.PointerWidth() == 32
	case "ptr64":
		return d.arch.PointerWidth() == 64
	}
	//
	i := slices.Index(d.arch.Features(), name)
	//
	return i >= 0 && d.features != nil && d.features.Test(uint(i))
}

// Features returns the optional features enabled for this target, in their
// canonical order.
func (d Descriptor) Features() []string {
	var features []string
	//
	for i, f := range d.arch.Features() {
		if d.features != nil && d.features.Test(uint(i)) {
			features = append(features, f)
		}
	}
	//
	return features
}

func (d Descriptor) String() string {
	return strings.Join(append([]string{d.arch.String()}, d.Features()...), " ")
}
