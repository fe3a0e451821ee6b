package security

import "github.com/tinylib/msgp/msgp"

// accountRecord is the on-disk shape of an Account, hand-marshalled with
// msgp rather than a generic serialisation library, since Store needs a
// stable compact binary record.
type accountRecord struct {
	Identifier   string
	Password     string
	Access       []string
	Modification []string
}

func (z *accountRecord) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 4)
	o = msgp.AppendString(o, "identifier")
	o = msgp.AppendString(o, z.Identifier)
	o = msgp.AppendString(o, "password")
	o = msgp.AppendString(o, z.Password)
	o = msgp.AppendString(o, "access")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Access)))
	for _, s := range z.Access {
		o = msgp.AppendString(o, s)
	}
	o = msgp.AppendString(o, "modification")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Modification)))
	for _, s := range z.Modification {
		o = msgp.AppendString(o, s)
	}
	return o, nil
}

func (z *accountRecord) UnmarshalMsg(bts []byte) ([]byte, error) {
	size, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < size; i++ {
		var key string
		key, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch key {
		case "identifier":
			z.Identifier, bts, err = msgp.ReadStringBytes(bts)
		case "password":
			z.Password, bts, err = msgp.ReadStringBytes(bts)
		case "access":
			z.Access, bts, err = readStringSlice(bts)
		case "modification":
			z.Modification, bts, err = readStringSlice(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}

func readStringSlice(bts []byte) ([]string, []byte, error) {
	n, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}
	out := make([]string, n)
	for i := range out {
		out[i], bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return nil, bts, err
		}
	}
	return out, bts, nil
}
