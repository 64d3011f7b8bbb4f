package transcoder

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
)

type Compiler struct {
	cache sync.Map // reflect.Type -> *CompiledType
	mu    sync.Mutex
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile returns the plan for goType, building and caching it on first use.
// Recursive types are supported.
func (c *Compiler) Compile(goType reflect.Type) (*CompiledType, error) {
	if goType == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}
	if cached, ok := c.cache.Load(goType); ok {
		return cached.(*CompiledType), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache.Load(goType); ok {
		return cached.(*CompiledType), nil
	}

	s := &session{c: c, pending: make(map[reflect.Type]*CompiledType)}
	ct, err := s.compile(goType, nil)
	if err != nil {
		return nil, err
	}
	s.propagate()
	for t, p := range s.pending {
		c.cache.Store(t, p)
	}
	return ct, nil
}

// session compiles one root type. Types reached while compiling are kept in
// pending until the whole graph is done, so recursive references resolve to
// the same plan.
type session struct {
	c       *Compiler
	pending map[reflect.Type]*CompiledType
}

func (s *session) compile(goType reflect.Type, path []string) (*CompiledType, error) {
	if cached, ok := s.c.cache.Load(goType); ok {
		return cached.(*CompiledType), nil
	}
	if ct, ok := s.pending[goType]; ok {
		return ct, nil
	}

	ct := &CompiledType{GoType: goType}
	s.pending[goType] = ct
	if err := s.fill(ct, path); err != nil {
		return nil, err
	}
	return ct, nil
}

func (s *session) fill(ct *CompiledType, path []string) error {
	goType := ct.GoType
	ptrType := reflect.PointerTo(goType)

	switch {
	case goType == pidType:
		ct.Kind = KindPid
		return nil
	case goType == termType || (goType.Kind() != reflect.Interface && goType.Implements(termType)):
		ct.Kind = KindTerm
		return nil
	case goType == atomType:
		ct.Kind = KindAtom
		return nil
	case goType.Kind() == reflect.Pointer:
		ct.Kind = KindPointer
		return s.elem(ct, goType.Elem(), path, "*")
	case goType.Implements(optionalMarker):
		ct.Kind = KindOptional
		elemType := reflect.Zero(goType).Interface().(optional).optionalElem()
		return s.elem(ct, elemType, path, "[some]")
	case goType.Implements(variantMarker):
		return s.compileVariant(ct, path)
	case goType.Implements(tupleMarker):
		return s.compileTuple(ct, path)
	case ptrType.Implements(decoderType) || goType.Implements(encoderType):
		return s.compileCustom(ct, path)
	}

	switch goType.Kind() {
	case reflect.Bool:
		ct.Kind = KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ct.Kind = KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ct.Kind = KindUint
	case reflect.Float32, reflect.Float64:
		ct.Kind = KindFloat
	case reflect.String:
		ct.Kind = KindString
	case reflect.Slice:
		if goType.Elem().Kind() == reflect.Uint8 {
			ct.Kind = KindBytes
			return nil
		}
		ct.Kind = KindList
		return s.elem(ct, goType.Elem(), path, "[elem]")
	case reflect.Map:
		ct.Kind = KindMap
		key, err := s.compile(goType.Key(), append(clonePath(path), "[key]"))
		if err != nil {
			return err
		}
		ct.Key = key
		return s.elem(ct, goType.Elem(), path, "[value]")
	case reflect.Struct:
		return s.compileStruct(ct, path)
	case reflect.Interface:
		if goType.NumMethod() == 0 {
			ct.Kind = KindAny
			return nil
		}
		return errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(goType.String()).
			Detail("only the empty interface and term.Term are supported").
			Build()
	default:
		return errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(goType.String()).
			Detail("unsupported Go type kind %s", goType.Kind()).
			Build()
	}
	return nil
}

func (s *session) elem(ct *CompiledType, elemType reflect.Type, path []string, seg string) error {
	elem, err := s.compile(elemType, append(clonePath(path), seg))
	if err != nil {
		return err
	}
	ct.Elem = elem
	return nil
}

func (s *session) compileCustom(ct *CompiledType, path []string) error {
	goType := ct.GoType
	ct.Kind = KindCustom
	ct.decoder = reflect.PointerTo(goType).Implements(decoderType)
	ct.encoder = goType.Implements(encoderType)
	ct.HasResource = reflect.PointerTo(goType).Implements(resourceType)

	if !ct.decoder {
		ct.decodeErr = errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(goType.String()).
			Detail("type can only be encoded").
			Build()
	}
	if !ct.encoder {
		ct.encodeErr = errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(goType.String()).
			Detail("type can only be decoded").
			Build()
	}
	return nil
}

func (s *session) compileVariant(ct *CompiledType, path []string) error {
	ct.Kind = KindVariant
	alts := reflect.Zero(ct.GoType).Interface().(variantValue).variantAlts()
	ct.Alts = make([]*CompiledType, len(alts))
	for i, alt := range alts {
		p, err := s.compile(alt, append(clonePath(path), "["+strconv.Itoa(i+1)+"]"))
		if err != nil {
			return err
		}
		ct.Alts[i] = p
	}
	return nil
}

func (s *session) compileTuple(ct *CompiledType, path []string) error {
	ct.Kind = KindTuple
	goType := ct.GoType
	ct.Fields = make([]CompiledField, goType.NumField())
	for i := range ct.Fields {
		f := goType.Field(i)
		p, err := s.compile(f.Type, append(clonePath(path), "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return err
		}
		ct.Fields[i] = CompiledField{Type: p, Name: f.Name, Index: i}
	}
	return nil
}

func (s *session) compileStruct(ct *CompiledType, path []string) error {
	goType := ct.GoType
	ct.Kind = KindRecord
	if goType.Implements(structType) {
		ct.Kind = KindStruct
		ct.Tag = reflect.Zero(goType).Interface().(Struct).TermStruct()
		ct.Exception = goType.Implements(exceptionType)
		path = []string{ct.Tag.Name()}
	}

	for i := 0; i < goType.NumField(); i++ {
		f := goType.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldName(f)
		if name == "" {
			continue
		}
		p, err := s.compile(f.Type, append(clonePath(path), name))
		if err != nil {
			return err
		}
		ct.Fields = append(ct.Fields, CompiledField{
			Type:  p,
			Atom:  atom.New(name),
			Name:  name,
			Index: i,
		})
	}
	return nil
}

// propagate pushes resource and capability information up through the
// graph. Recursive references see placeholders during compile, so this runs
// to a fixed point afterwards.
func (s *session) propagate() {
	for changed := true; changed; {
		changed = false
		for _, ct := range s.pending {
			for _, child := range ct.children() {
				if child.HasResource && !ct.HasResource {
					ct.HasResource = true
					changed = true
				}
				if child.decodeErr != nil && ct.decodeErr == nil && ct.Kind != KindVariant {
					ct.decodeErr = child.decodeErr
					changed = true
				}
				if child.encodeErr != nil && ct.encodeErr == nil && ct.Kind != KindVariant {
					ct.encodeErr = child.encodeErr
					changed = true
				}
			}
		}
	}
}

// fieldName resolves a struct field's key: the term tag when present,
// "-" to skip, otherwise the Go name in snake_case.
func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("term"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return toSnakeCase(f.Name)
}

func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				result.WriteByte('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func clonePath(path []string) []string {
	return append([]string{}, path...)
}
