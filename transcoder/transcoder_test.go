package transcoder

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	rterrors "github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/resource"
	"github.com/wippyai/nif-runtime/term"
)

type point struct {
	X     int64
	Y     int64
	Label string `term:"name"`
	skip  int
	Temp  int `term:"-"`
}

func (point) TermStruct() atom.Atom { return atom.New("Elixir.Geo.Point") }

type argumentError struct {
	Message string
}

func (argumentError) TermStruct() atom.Atom { return atom.New("Elixir.ArgumentError") }
func (argumentError) TermException()        {}

type config struct {
	MaxSize int
	Enabled bool
}

type node struct {
	Value    int
	Children []node
}

// lowerKey decodes any binary into its lowercase form, so distinct term
// keys can collide in a Go map.
type lowerKey string

func (k *lowerKey) DecodeTerm(_ nifruntime.Env, t term.Term) error {
	b, ok := t.(term.Binary)
	if !ok {
		return rterrors.Expected(nil, "lowerKey", "a binary")
	}
	*k = lowerKey(strings.ToLower(string(b.Bytes())))
	return nil
}

func roundTrip[T any](t *testing.T, env *testEnv, v T) T {
	t.Helper()
	enc, err := Encode(env, v)
	if err != nil {
		t.Fatalf("Encode(%v): %v", v, err)
	}
	out, err := Decode[T](env, enc)
	if err != nil {
		t.Fatalf("Decode(%s): %v", enc, err)
	}
	return out
}

func TestScalars_RoundTrip(t *testing.T) {
	env := newTestEnv()

	if got := roundTrip(t, env, int64(-42)); got != -42 {
		t.Errorf("int64 = %d", got)
	}
	if got := roundTrip(t, env, uint32(math.MaxUint32)); got != math.MaxUint32 {
		t.Errorf("uint32 = %d", got)
	}
	if got := roundTrip(t, env, 2.5); got != 2.5 {
		t.Errorf("float64 = %v", got)
	}
	if got := roundTrip(t, env, true); !got {
		t.Error("bool = false")
	}
	if got := roundTrip(t, env, "héllo"); got != "héllo" {
		t.Errorf("string = %q", got)
	}
	if got := roundTrip(t, env, []byte{0, 1, 255}); !cmp.Equal(got, []byte{0, 1, 255}) {
		t.Errorf("bytes = %v", got)
	}
	if got := roundTrip(t, env, atom.New("hello")); got != atom.New("hello") {
		t.Errorf("atom = %v", got)
	}
	if got := roundTrip(t, env, []int{1, 2, 3}); !cmp.Equal(got, []int{1, 2, 3}) {
		t.Errorf("list = %v", got)
	}
}

func TestEncode_Shapes(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"int", 7, "7"},
		{"float", 1.5, "1.5"},
		{"bool", false, "false"},
		{"string", "hi", `"hi"`},
		{"nil pointer", (*int)(nil), "nil"},
		{"none", None[int](), "nil"},
		{"some", Some("x"), `"x"`},
		{"nil slice", []int(nil), "[]"},
		{"tuple", NewTuple2(int64(1), "a"), `{1, "a"}`},
		{"ok bare", NewOk(), "ok"},
		{"ok items", NewOk(1, "x"), `{ok, 1, "x"}`},
		{"error item", NewError(atom.New("badarg")), "{error, badarg}"},
		{"record", config{MaxSize: 10, Enabled: true}, "%{max_size => 10, enabled => true}"},
		{"nil any", nil, "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(env, tt.value)
			if err != nil {
				t.Fatalf("EncodeValue: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStruct_EncodeOrder(t *testing.T) {
	env := newTestEnv()

	got, err := Encode(env, point{X: 1, Y: 2, Label: "origin", skip: 9, Temp: 5})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m := got.(term.Map)
	var keys []string
	for _, p := range m.Insertion() {
		keys = append(keys, p.Key.String())
	}
	if diff := cmp.Diff([]string{"'__struct__'", "x", "y", "name"}, keys); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if env.mapCalls != 1 {
		t.Errorf("MakeMap called %d times, want 1", env.mapCalls)
	}

	back, err := Decode[point](env, got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(point{X: 1, Y: 2, Label: "origin"}, back, cmp.AllowUnexported(point{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStruct_Exception(t *testing.T) {
	env := newTestEnv()

	got, err := Encode(env, argumentError{Message: "bad"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `%{'__struct__' => 'Elixir.ArgumentError', '__exception__' => true, message => "bad"}`
	if got.String() != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestStruct_DecodeErrors(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not a map", `{1, 2}`, "decode failed, expected a struct"},
		{"no tag", `%{x => 1, y => 2, name => "a"}`, "decode failed, expected a struct"},
		{"wrong tag", `%{'__struct__' => 'Elixir.Other', x => 1, y => 2, name => "a"}`, "decode failed, expected a Elixir.Geo.Point struct"},
		{"missing field", `%{'__struct__' => 'Elixir.Geo.Point', x => 1, name => "a"}`, "decode failed, expected the struct to have y field"},
		{"bad field", `%{'__struct__' => 'Elixir.Geo.Point', x => 1, y => 2.0, name => "a"}`, "decode failed, expected an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[point](env, term.MustParse(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !rterrors.IsDecode(err) {
				t.Errorf("phase = %v, want decode", err)
			}
			var e *rterrors.Error
			if !errors.As(err, &e) {
				t.Fatalf("error = %v, want *errors.Error", err)
			}
			if e.Message() != tt.want {
				t.Errorf("message = %q, want %q", e.Message(), tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name   string
		decode func(term.Term) error
		input  term.Term
		want   string
	}{
		{"int from float", func(t term.Term) error { _, err := Decode[int](env, t); return err }, term.Float(1), "decode failed, expected an integer"},
		{"uint from negative", func(t term.Term) error { _, err := Decode[uint8](env, t); return err }, term.Int(-1), "decode failed, expected an unsigned integer"},
		{"float from int", func(t term.Term) error { _, err := Decode[float64](env, t); return err }, term.Int(1), "decode failed, expected a float"},
		{"bool from atom", func(t term.Term) error { _, err := Decode[bool](env, t); return err }, term.NewAtom("yes"), "decode failed, expected a boolean"},
		{"string from list", func(t term.Term) error { _, err := Decode[string](env, t); return err }, term.List{}, "decode failed, expected a binary"},
		{"atom from binary", func(t term.Term) error { _, err := Decode[atom.Atom](env, t); return err }, term.NewBinary([]byte("a")), "decode failed, expected an atom"},
		{"list from tuple", func(t term.Term) error { _, err := Decode[[]int](env, t); return err }, term.Tuple{}, "decode failed, expected a list"},
		{"map from list", func(t term.Term) error { _, err := Decode[map[string]int](env, t); return err }, term.List{}, "decode failed, expected a map"},
		{"tuple from list", func(t term.Term) error { _, err := Decode[Tuple2[int, int]](env, t); return err }, term.List{}, "decode failed, expected a tuple"},
		{"tuple arity", func(t term.Term) error { _, err := Decode[Tuple2[int, int]](env, t); return err }, term.Tuple{term.Int(1), term.Int(2), term.Int(3)}, "decode failed, expected tuple to have 2 elements, but had 3"},
		{"pid from int", func(t term.Term) error { _, err := Decode[term.Pid](env, t); return err }, term.Int(1), "decode failed, expected a local pid"},
		{"remote pid", func(t term.Term) error { _, err := Decode[term.Pid](env, t); return err }, term.Pid{Node: "other@host", ID: 1},
			"decode failed, expected a local pid, but got a remote one. NIFs can only send messages to local PIDs and remote PIDs cannot be decoded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(tt.input)
			var e *rterrors.Error
			if !errors.As(err, &e) {
				t.Fatalf("error = %v, want *errors.Error", err)
			}
			if e.Phase != rterrors.PhaseDecode {
				t.Errorf("phase = %s, want decode", e.Phase)
			}
			if e.Message() != tt.want {
				t.Errorf("message = %q, want %q", e.Message(), tt.want)
			}
		})
	}
}

func TestDecode_Overflow(t *testing.T) {
	env := newTestEnv()

	_, err := Decode[int8](env, term.Int(200))
	if k, _ := rterrors.KindOf(err); k != rterrors.KindOverflow {
		t.Errorf("int8 from 200: kind = %v, want overflow", k)
	}
	_, err = Decode[int64](env, term.MustParse("123456789012345678901234567890"))
	if k, _ := rterrors.KindOf(err); k != rterrors.KindOverflow {
		t.Errorf("int64 from bignum: kind = %v, want overflow", k)
	}
	got, err := Decode[uint64](env, term.Uint(math.MaxUint64))
	if err != nil || got != math.MaxUint64 {
		t.Errorf("uint64 max = %d, %v", got, err)
	}
}

func TestDecode_Pid(t *testing.T) {
	env := newTestEnv()

	for _, p := range []term.Pid{{ID: 3}, {Node: env.node, ID: 4}} {
		got, err := Decode[term.Pid](env, p)
		if err != nil {
			t.Fatalf("Decode(%v): %v", p, err)
		}
		if got != p {
			t.Errorf("got %v, want %v", got, p)
		}
	}
}

func TestDecode_BytesAreAView(t *testing.T) {
	env := newTestEnv()

	data := []byte("abc")
	b, err := Decode[[]byte](env, term.NewBinary(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, err := Decode[string](env, term.NewBinary(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data[0] = 'x'
	if string(b) != "xbc" {
		t.Errorf("[]byte = %q, want a view of the binary", b)
	}
	if s != "abc" {
		t.Errorf("string = %q, want a copy", s)
	}
}

func TestOptional(t *testing.T) {
	env := newTestEnv()

	none, err := Decode[Optional[int]](env, term.NewAtom("nil"))
	if err != nil || none.IsSome() {
		t.Fatalf("Decode(nil) = %v, %v", none, err)
	}
	some, err := Decode[Optional[int]](env, term.Int(5))
	if err != nil {
		t.Fatalf("Decode(5): %v", err)
	}
	if v, ok := some.Get(); !ok || v != 5 {
		t.Errorf("Get() = %d, %v", v, ok)
	}
	if none.OrElse(9) != 9 {
		t.Error("OrElse should return the default")
	}

	p, err := Decode[*string](env, term.NewAtom("nil"))
	if err != nil || p != nil {
		t.Errorf("*string from nil = %v, %v", p, err)
	}
	p, err = Decode[*string](env, term.NewBinary([]byte("x")))
	if err != nil || p == nil || *p != "x" {
		t.Errorf("*string from binary = %v, %v", p, err)
	}
}

func TestVariant(t *testing.T) {
	env := newTestEnv()

	v, err := Decode[Variant2[int64, string]](env, term.NewBinary([]byte("two")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Index() != 2 {
		t.Errorf("Index() = %d, want 2", v.Index())
	}
	if s, ok := VariantAs[string](v); !ok || s != "two" {
		t.Errorf("value = %v", v.Value())
	}

	v, err = Decode[Variant2[int64, string]](env, term.Int(1))
	if err != nil || v.Index() != 1 {
		t.Fatalf("Decode(1) = %d, %v", v.Index(), err)
	}

	_, err = Decode[Variant2[int64, string]](env, term.Float(1))
	var e *rterrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %v", err)
	}
	if e.Kind != rterrors.KindInvalidVariant || e.Message() != "decode failed, none of the variant types could be decoded" {
		t.Errorf("error = %v", e)
	}
	if !rterrors.IsDecode(err) {
		t.Error("variant failure should be a decode error")
	}

	var out Variant3[bool, int, string]
	if err := out.Set(7); err != nil {
		t.Fatalf("Set: %v", err)
	}
	enc, err := Encode(env, out)
	if err != nil || enc.String() != "7" {
		t.Errorf("Encode = %v, %v", enc, err)
	}
	if err := out.Set(1.5); err == nil {
		t.Error("Set should reject a type outside the alternatives")
	}
	if _, err := Encode(env, Variant2[int, string]{}); err == nil {
		t.Error("encoding an empty variant should fail")
	}
}

func TestVariant_NestedTupleArity(t *testing.T) {
	env := newTestEnv()

	v, err := Decode[Variant2[Tuple2[int, int], Tuple3[int, int, int]]](env, term.MustParse("{1, 2, 3}"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tup, ok := VariantAs[Tuple3[int, int, int]](v)
	if !ok || tup.V3 != 3 {
		t.Errorf("value = %v", v.Value())
	}
}

func TestMap_DuplicateKeysLastWins(t *testing.T) {
	env := newTestEnv()

	// Pairs iterate in term order: "A" sorts before "a".
	got, err := Decode[map[lowerKey]int](env, term.MustParse(`%{"a" => 2, "A" => 1}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(map[lowerKey]int{"a": 2}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_RoundTrip(t *testing.T) {
	env := newTestEnv()

	in := map[string][]int{"a": {1}, "b": {2, 3}}
	if diff := cmp.Diff(in, roundTrip(t, env, in)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if env.mapCalls != 1 {
		t.Errorf("MakeMap called %d times, want 1", env.mapCalls)
	}
}

func TestRecursiveType(t *testing.T) {
	env := newTestEnv()

	in := node{Value: 1, Children: []node{{Value: 2}, {Value: 3, Children: []node{{Value: 4}}}}}
	out := roundTrip(t, env, in)
	if out.Children[1].Children[0].Value != 4 {
		t.Errorf("got %+v", out)
	}
}

func TestTermPassthrough(t *testing.T) {
	env := newTestEnv()

	in := term.MustParse(`{a, [1, 2], %{k => <<"v">>}}`)
	got, err := Decode[term.Term](env, in)
	if err != nil || !term.Equal(got, in) {
		t.Fatalf("Decode = %v, %v", got, err)
	}
	if _, err := Decode[term.Tuple](env, term.List{}); err == nil {
		t.Error("term.Tuple should reject a list")
	}
	anyVal, err := Decode[any](env, in)
	if err != nil || !term.Equal(anyVal.(term.Term), in) {
		t.Errorf("any = %v, %v", anyVal, err)
	}
}

func TestEncode_AllocationFailure(t *testing.T) {
	env := newTestEnv()
	env.binErr = errors.New("no memory")

	_, err := Encode(env, "data")
	var e *rterrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %v", err)
	}
	if e.Kind != rterrors.KindAllocation || e.Message() != "encode failed, failed to allocate new binary" {
		t.Errorf("error = %v", e)
	}
}

func TestEncodeOnly_DecodeFails(t *testing.T) {
	env := newTestEnv()

	_, err := Decode[Ok](env, term.NewAtom("ok"))
	if k, _ := rterrors.KindOf(err); k != rterrors.KindUnsupported {
		t.Errorf("kind = %v, want unsupported", k)
	}
	_, err = Decode[[]Ok](env, term.List{})
	if k, _ := rterrors.KindOf(err); k != rterrors.KindUnsupported {
		t.Errorf("[]Ok kind = %v, want unsupported", k)
	}
}

func TestCompile_Unsupported(t *testing.T) {
	env := newTestEnv()

	_, err := Encode(env, make(chan int))
	if p, _ := rterrors.PhaseOf(err); p != rterrors.PhaseCompile {
		t.Errorf("phase = %v, want compile", p)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"MaxSize":   "max_size",
		"HTTPCode":  "http_code",
		"UserID":    "user_id",
		"already":   "already",
		"ParseJSON": "parse_json",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

type counter struct{ n int }

type holder struct {
	Items []resource.Ptr[counter]
	One   Optional[resource.Ptr[counter]]
}

func TestResources_DecodeAndRelease(t *testing.T) {
	env := newTestEnv()
	registerType[counter](env, "Counter")

	p, err := resource.Make(env, counter{n: 1})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	ref, err := p.EncodeTerm(env)
	if err != nil {
		t.Fatalf("EncodeTerm: %v", err)
	}
	if n := env.refs(p.Object()); n != 2 {
		t.Fatalf("refs = %d, want 2", n)
	}

	h, err := Decode[holder](env, term.MapOf(
		term.Pair{Key: term.NewAtom("items"), Value: term.List{ref, ref}},
		term.Pair{Key: term.NewAtom("one"), Value: ref},
	))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := env.refs(p.Object()); n != 5 {
		t.Fatalf("refs after decode = %d, want 5", n)
	}

	Release(&h)
	if n := env.refs(p.Object()); n != 2 {
		t.Errorf("refs after Release = %d, want 2", n)
	}

	// A failed decode gives back what it took.
	_, err = Decode[holder](env, term.MapOf(
		term.Pair{Key: term.NewAtom("items"), Value: term.List{ref, term.Int(1)}},
		term.Pair{Key: term.NewAtom("one"), Value: ref},
	))
	if err == nil {
		t.Fatal("expected error")
	}
	if n := env.refs(p.Object()); n != 2 {
		t.Errorf("refs after failed decode = %d, want 2", n)
	}
}

func TestResources_VariantFallback(t *testing.T) {
	env := newTestEnv()
	registerType[counter](env, "Counter")

	v, err := Decode[Variant2[resource.Ptr[counter], int]](env, term.Int(3))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Index() != 2 {
		t.Errorf("Index() = %d, want 2", v.Index())
	}
}
