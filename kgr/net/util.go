package net

// asInt64 normalises a decoded JSON number (float64, the shape jsoniter
// gives interface{} targets) or an already-native int64 into an int64 pipe
// id; anything else decodes as zero.
func asInt64(v Value) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asString(v Value) string {
	s, _ := v.(string)
	return s
}

func asDict(v Value) map[string]Value {
	d, _ := v.(map[string]Value)
	return d
}
