package transcoder

import (
	"reflect"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/term"
)

// TypeKind is the shape a compiled Go type is marshalled as.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindAtom
	KindPid
	KindTerm
	KindAny
	KindPointer
	KindOptional
	KindVariant
	KindTuple
	KindList
	KindMap
	KindStruct
	KindRecord
	KindCustom
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindBool:     "bool",
	KindInt:      "int",
	KindUint:     "uint",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindAtom:     "atom",
	KindPid:      "pid",
	KindTerm:     "term",
	KindAny:      "any",
	KindPointer:  "pointer",
	KindOptional: "optional",
	KindVariant:  "variant",
	KindTuple:    "tuple",
	KindList:     "list",
	KindMap:      "map",
	KindStruct:   "struct",
	KindRecord:   "record",
	KindCustom:   "custom",
}

func (k TypeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// CompiledType is the marshalling plan for one Go type. Plans are built
// once per type by a Compiler and shared.
type CompiledType struct {
	GoType reflect.Type
	Elem   *CompiledType // pointer, optional, list and map value
	Key    *CompiledType // map key

	decodeErr error
	encodeErr error

	Alts   []*CompiledType // variant alternatives, in declaration order
	Fields []CompiledField // struct, record and tuple fields

	Tag atom.Atom // __struct__ value for KindStruct

	Kind TypeKind

	// Exception marks structs encoded with __exception__ => true.
	Exception bool
	// HasResource is set when values of the type can hold resource
	// references that dispatch must give back after a call.
	HasResource bool

	decoder bool // pointer implements TermDecoder
	encoder bool // value implements TermEncoder
}

// CompiledField is one field of a struct, record or tuple.
type CompiledField struct {
	Type  *CompiledType
	Atom  atom.Atom
	Name  string
	Index int
}

// CanDecode reports why values of the type cannot be decoded, if so.
func (ct *CompiledType) CanDecode() error { return ct.decodeErr }

// CanEncode reports why values of the type cannot be encoded, if so.
func (ct *CompiledType) CanEncode() error { return ct.encodeErr }

func (ct *CompiledType) children() []*CompiledType {
	var out []*CompiledType
	if ct.Elem != nil {
		out = append(out, ct.Elem)
	}
	if ct.Key != nil {
		out = append(out, ct.Key)
	}
	out = append(out, ct.Alts...)
	for _, f := range ct.Fields {
		out = append(out, f.Type)
	}
	return out
}

// TermDecoder is implemented by pointer types that decode themselves.
type TermDecoder interface {
	DecodeTerm(env nifruntime.Env, t term.Term) error
}

// TermEncoder is implemented by types that encode themselves.
type TermEncoder interface {
	EncodeTerm(env nifruntime.Env) (term.Term, error)
}

// Struct marks a Go struct as the native side of a host struct. The
// returned atom is the __struct__ tag, e.g. atom.New("Elixir.MyApp.Point").
type Struct interface {
	TermStruct() atom.Atom
}

// Exception marks a Struct that encodes as an exception.
type Exception interface {
	Struct
	TermException()
}

// resourceHandle is satisfied by *resource.Ptr[T].
type resourceHandle interface {
	Object() nifruntime.ResourceObject
	Release()
}

var (
	termType       = reflect.TypeFor[term.Term]()
	atomType       = reflect.TypeFor[atom.Atom]()
	pidType        = reflect.TypeFor[term.Pid]()
	decoderType    = reflect.TypeFor[TermDecoder]()
	encoderType    = reflect.TypeFor[TermEncoder]()
	structType     = reflect.TypeFor[Struct]()
	exceptionType  = reflect.TypeFor[Exception]()
	resourceType   = reflect.TypeFor[resourceHandle]()
	optionalMarker = reflect.TypeFor[optional]()
	variantMarker  = reflect.TypeFor[variantValue]()
	tupleMarker    = reflect.TypeFor[tuple]()
)
