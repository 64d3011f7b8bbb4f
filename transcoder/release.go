package transcoder

import "reflect"

// releaseValue gives back every resource reference held inside v. v must be
// addressable. Values without resources are left alone.
func releaseValue(ct *CompiledType, v reflect.Value) {
	if !ct.HasResource {
		return
	}

	switch ct.Kind {
	case KindCustom:
		if r, ok := v.Addr().Interface().(resourceHandle); ok {
			r.Release()
		}

	case KindPointer:
		if !v.IsNil() {
			releaseValue(ct.Elem, v.Elem())
		}

	case KindOptional:
		releaseValue(ct.Elem, v.Addr().Interface().(optionalSetter).optionalSlot())

	case KindVariant:
		idx, val := v.Interface().(variantValue).variantGet()
		if idx == 0 || val == nil {
			return
		}
		alt := ct.Alts[idx-1]
		slot := reflect.New(alt.GoType).Elem()
		slot.Set(reflect.ValueOf(val))
		releaseValue(alt, slot)
		v.Addr().Interface().(variantSetter).variantSet(idx, slot.Interface())

	case KindTuple, KindStruct, KindRecord:
		for _, f := range ct.Fields {
			releaseValue(f.Type, v.Field(f.Index))
		}

	case KindList:
		for i := 0; i < v.Len(); i++ {
			releaseValue(ct.Elem, v.Index(i))
		}

	case KindMap:
		// Map values are not addressable; release a copy and store it back.
		iter := v.MapRange()
		for iter.Next() {
			slot := reflect.New(ct.Elem.GoType).Elem()
			slot.Set(iter.Value())
			releaseValue(ct.Elem, slot)
			v.SetMapIndex(iter.Key(), slot)
		}
	}
}
