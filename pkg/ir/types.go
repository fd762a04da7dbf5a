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
package ir

import (
	"fmt"
	"strings"
)

// Type identifies the type of a value.  Types are scalar integers, scalar
// floats or fixed-width vectors of those.  Observe that the zero value is the
// invalid type, which is used for instructions without results.
type Type uint8

const (
	// InvalidType represents the absence of a type.
	InvalidType Type = iota
	// I8 is an 8-bit integer.
	I8
	// I16 is a 16-bit integer.
	I16
	// I32 is a 32-bit integer.
	I32
	// I64 is a 64-bit integer.
	I64
	// I128 is a 128-bit integer.
	I128
	// F32 is a single precision float.
	F32
	// F64 is a double precision float.
	F64
	// I8X16 is a vector of sixteen 8-bit integers.
	I8X16
	// I16X8 is a vector of eight 16-bit integers.
	I16X8
	// I32X4 is a vector of four 32-bit integers.
	I32X4
	// I64X2 is a vector of two 64-bit integers.
	I64X2
	// F32X4 is a vector of four single precision floats.
	F32X4
	// F64X2 is a vector of two double precision floats.
	F64X2
	// TupleType is the type of an e-class holding a multi-result instruction.
	// It never appears in function text.
	TupleType
)

var typeNames = [...]string{
	"invalid", "i8", "i16", "i32", "i64", "i128", "f32", "f64",
	"i8x16", "i16x8", "i32x4", "i64x2", "f32x4", "f64x2", "tuple",
}

// ParseType parses a type name such as "i32" or "f32x4".
func ParseType(name string) (Type, bool) {
	for i, n := range typeNames {
		if i != int(InvalidType) && i != int(TupleType) && n == name {
			return Type(i), true
		}
	}
	//
	return InvalidType, false
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	//
	return fmt.Sprintf("type%d", uint8(t))
}

// IsInt checks whether this is a scalar integer type.
func (t Type) IsInt() bool {
	return t >= I8 && t <= I128
}

// IsFloat checks whether this is a scalar float type.
func (t Type) IsFloat() bool {
	return t == F32 || t == F64
}

// IsVector checks whether this is a vector type.
func (t Type) IsVector() bool {
	return t >= I8X16 && t <= F64X2
}

// IsScalar checks whether this is either a scalar integer or float.
func (t Type) IsScalar() bool {
	return t.IsInt() || t.IsFloat()
}

// Lane returns the lane type of a vector, or the type itself for scalars.
func (t Type) Lane() Type {
	switch t {
	case I8X16:
		return I8
	case I16X8:
		return I16
	case I32X4:
		return I32
	case I64X2:
		return I64
	case F32X4:
		return F32
	case F64X2:
		return F64
	default:
		return t
	}
}

// Lanes returns the number of lanes of a vector type, or 1 for scalars.
func (t Type) Lanes() uint {
	if t.IsVector() {
		return 128 / t.Lane().Bits()
	}
	//
	return 1
}

// Bits returns the total bitwidth of this type.
func (t Type) Bits() uint {
	switch t {
	case I8:
		return 8
	case I16:
		return 16
	case I32, F32:
		return 32
	case I64, F64:
		return 64
	case I128:
		return 128
	case I8X16, I16X8, I32X4, I64X2, F32X4, F64X2:
		return 128
	default:
		return 0
	}
}

// Bytes returns the size of this type in bytes.
func (t Type) Bytes() uint {
	return t.Bits() / 8
}

// IntOfWidth returns the scalar integer type of a given bitwidth, or
// InvalidType if there is none.
func IntOfWidth(bits uint) Type {
	switch bits {
	case 8:
		return I8
	case 16:
		return I16
	case 32:
		return I32
	case 64:
		return I64
	case 128:
		return I128
	default:
		return InvalidType
	}
}

// AsInt returns the integer type with the same shape as this type.  For
// example, f32 maps to i32 and f64x2 maps to i64x2.
func (t Type) AsInt() Type {
	switch t {
	case F32:
		return I32
	case F64:
		return I64
	case F32X4:
		return I32X4
	case F64X2:
		return I64X2
	default:
		return t
	}
}

// VectorOf returns the 128-bit vector type with lanes of the given type, or
// InvalidType if there is none.
func VectorOf(lane Type) Type {
	switch lane {
	case I8:
		return I8X16
	case I16:
		return I16X8
	case I32:
		return I32X4
	case I64:
		return I64X2
	case F32:
		return F32X4
	case F64:
		return F64X2
	default:
		return InvalidType
	}
}

// TypeClass constrains a type in a pattern.  A class is either an exact type,
// or a family of types (e.g. all scalar integers).
type TypeClass struct {
	// Exact type (if not invalid)
	exact Type
	// Family name (if exact is invalid)
	family string
}

// AnyType is the unconstrained type class.
var AnyType = TypeClass{}

// ParseTypeClass parses a type class, which is either a type name or one of
// "int", "float", "vector" or "scalar".
func ParseTypeClass(name string) (TypeClass, bool) {
	if t, ok := ParseType(name); ok {
		return TypeClass{t, ""}, true
	}
	//
	switch name {
	case "int", "float", "vector", "scalar":
		return TypeClass{InvalidType, name}, true
	}
	//
	return AnyType, false
}

// ExactClass returns the type class containing exactly one type.
func ExactClass(t Type) TypeClass {
	return TypeClass{t, ""}
}

// Exact returns the exact type of this class (if it has one).
func (c TypeClass) Exact() (Type, bool) {
	return c.exact, c.exact != InvalidType
}

// IsAny checks whether this class is unconstrained.
func (c TypeClass) IsAny() bool {
	return c.exact == InvalidType && c.family == ""
}

// Contains checks whether a given type belongs to this class.
func (c TypeClass) Contains(t Type) bool {
	switch {
	case c.exact != InvalidType:
		return c.exact == t
	case c.family == "int":
		return t.IsInt()
	case c.family == "float":
		return t.IsFloat()
	case c.family == "vector":
		return t.IsVector()
	case c.family == "scalar":
		return t.IsScalar()
	default:
		return true
	}
}

func (c TypeClass) String() string {
	if c.exact != InvalidType {
		return c.exact.String()
	}
	//
	return c.family
}

// SplitTypedName splits a name of the form "op.type" into its components.
func SplitTypedName(name string) (string, string) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i], name[i+1:]
	}
	//
	return name, ""
}
