// SPDX-License-Identifier: AGPL-3.0-or-later

package rpcbus

// Hand-maintained in place of `go generate`'d output (msgp's code generator
// isn't run by this build); shape matches what `msgp` emits for a struct
// with a string, a uint8-backed enum, and a map[string]string field.

import "github.com/tinylib/msgp/msgp"

// MarshalMsg implements msgp.Marshaler.
func (z Event) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.AppendMapHeader(b, 3)
	o = msgp.AppendString(o, "path")
	o = msgp.AppendString(o, z.Path)
	o = msgp.AppendString(o, "kind")
	o = msgp.AppendUint8(o, uint8(z.Kind))
	o = msgp.AppendString(o, "properties")
	o = msgp.AppendMapStrStr(o, z.Properties)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *Event) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var sz uint32
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < sz; i++ {
		var field string
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch field {
		case "path":
			z.Path, bts, err = msgp.ReadStringBytes(bts)
		case "kind":
			var k uint8
			k, bts, err = msgp.ReadUint8Bytes(bts)
			z.Kind = Kind(k)
		case "properties":
			z.Properties, bts, err = msgp.ReadMapStrStrBytes(bts, z.Properties)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

// Msgsize implements msgp.Sizer.
func (z Event) Msgsize() int {
	s := msgp.MapHeaderSize
	s += msgp.StringPrefixSize + len("path") + msgp.StringPrefixSize + len(z.Path)
	s += msgp.StringPrefixSize + len("kind") + msgp.Uint8Size
	s += msgp.StringPrefixSize + len("properties") + msgp.MapHeaderSize
	for k, v := range z.Properties {
		s += msgp.StringPrefixSize + len(k) + msgp.StringPrefixSize + len(v)
	}
	return s
}
