package cnext

import "fmt"

// OverflowPolicy is the saturate-vs-wrap choice: Clamp
// (default) saturates at the type's limits, Wrap is modular
// arithmetic. Attached to arithmetic nodes and variable declarations.
type OverflowPolicy int

const (
	Clamp OverflowPolicy = iota
	Wrap
)

func (p OverflowPolicy) String() string {
	if p == Wrap {
		return "wrap"
	}
	return "clamp"
}

// PrimKind enumerates the built-in primitive types.
type PrimKind int

const (
	PrimU8 PrimKind = iota
	PrimU16
	PrimU32
	PrimU64
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimF32
	PrimF64
	PrimBool
	PrimVoid
	PrimISR
)

var primNames = map[PrimKind]string{
	PrimU8: "u8", PrimU16: "u16", PrimU32: "u32", PrimU64: "u64",
	PrimI8: "i8", PrimI16: "i16", PrimI32: "i32", PrimI64: "i64",
	PrimF32: "f32", PrimF64: "f64", PrimBool: "bool", PrimVoid: "void",
	PrimISR: "ISR",
}

func (p PrimKind) String() string { return primNames[p] }

// IsSigned reports whether p is one of the signed integer widths.
func (p PrimKind) IsSigned() bool {
	switch p {
	case PrimI8, PrimI16, PrimI32, PrimI64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether p is any fixed-width integer type.
func (p PrimKind) IsInteger() bool {
	switch p {
	case PrimU8, PrimU16, PrimU32, PrimU64, PrimI8, PrimI16, PrimI32, PrimI64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether p is f32 or f64.
func (p PrimKind) IsFloat() bool { return p == PrimF32 || p == PrimF64 }

// Width returns the bit width of an integer/float primitive, or 0 for
// bool/void/ISR.
func (p PrimKind) Width() int {
	switch p {
	case PrimU8, PrimI8:
		return 8
	case PrimU16, PrimI16:
		return 16
	case PrimU32, PrimI32, PrimF32:
		return 32
	case PrimU64, PrimI64, PrimF64:
		return 64
	default:
		return 0
	}
}

// TypeTag discriminates the Type sum type.
type TypeTag int

const (
	TypePrim TypeTag = iota
	TypeBoundedString
	TypeNamed
	TypePtr
	TypeArray
	TypeRef
	TypeBitmap
	TypeUnknown
)

// Type is the tagged sum type for every C-Next type shape. Only the
// fields relevant to Tag are meaningful. A closed, exhaustively-matched
// struct rather than a Go interface hierarchy, because the set of type
// shapes is fixed and never extended by user code.
type Type struct {
	Tag TypeTag

	Prim PrimKind // TypePrim

	StringCap int // TypeBoundedString: the N in string<N>

	Name string // TypeNamed

	Elem *Type // TypePtr, TypeArray, TypeRef, TypeBitmap (backing prim wrapped as TypePrim)

	ArrayLen    int // TypeArray, -1 if unsized
	ArrayLenSet bool

	RefConst bool // TypeRef only
}

func PrimType(p PrimKind) Type { return Type{Tag: TypePrim, Prim: p} }
func BoolType() Type           { return PrimType(PrimBool) }
func VoidType() Type           { return PrimType(PrimVoid) }
func UnknownType() Type        { return Type{Tag: TypeUnknown} }

func BoundedStringType(n int) Type { return Type{Tag: TypeBoundedString, StringCap: n} }

func NamedType(name string) Type { return Type{Tag: TypeNamed, Name: name} }

func PtrType(elem Type) Type {
	e := elem
	return Type{Tag: TypePtr, Elem: &e}
}

func ArrayType(elem Type, length int, hasLength bool) Type {
	e := elem
	return Type{Tag: TypeArray, Elem: &e, ArrayLen: length, ArrayLenSet: hasLength}
}

func RefType(elem Type, isConst bool) Type {
	e := elem
	return Type{Tag: TypeRef, Elem: &e, RefConst: isConst}
}

func BitmapType(backing PrimKind) Type {
	e := PrimType(backing)
	return Type{Tag: TypeBitmap, Elem: &e}
}

func (t Type) String() string {
	switch t.Tag {
	case TypePrim:
		return t.Prim.String()
	case TypeBoundedString:
		return fmt.Sprintf("string<%d>", t.StringCap)
	case TypeNamed:
		return t.Name
	case TypePtr:
		return fmt.Sprintf("%s*", t.Elem.String())
	case TypeArray:
		if t.ArrayLenSet {
			return fmt.Sprintf("%s[%d]", t.Elem.String(), t.ArrayLen)
		}
		return fmt.Sprintf("%s[]", t.Elem.String())
	case TypeRef:
		if t.RefConst {
			return fmt.Sprintf("const %s&", t.Elem.String())
		}
		return fmt.Sprintf("%s&", t.Elem.String())
	case TypeBitmap:
		return fmt.Sprintf("bitmap(%s)", t.Elem.String())
	default:
		return "<unknown>"
	}
}

// Equal reports structural equality between two Types.
func (t Type) Equal(o Type) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case TypePrim:
		return t.Prim == o.Prim
	case TypeBoundedString:
		return t.StringCap == o.StringCap
	case TypeNamed:
		return t.Name == o.Name
	case TypePtr:
		return t.Elem.Equal(*o.Elem)
	case TypeArray:
		return t.Elem.Equal(*o.Elem) && t.ArrayLenSet == o.ArrayLenSet && t.ArrayLen == o.ArrayLen
	case TypeRef:
		return t.Elem.Equal(*o.Elem) && t.RefConst == o.RefConst
	case TypeBitmap:
		return t.Elem.Equal(*o.Elem)
	default:
		return true
	}
}
