package domain

// Identity is the native unique identifier of a person as stored upstream.
// primitive.ObjectID satisfies it.
type Identity interface {
	Hex() string
}

// PersonRef carries both representations a membership may use to reference a person.
type PersonRef struct {
	Native Identity
	Key    string
}

// NormalizeIdentity returns the native value alongside its canonical string rendering.
func NormalizeIdentity(native Identity) PersonRef {
	return PersonRef{Native: native, Key: native.Hex()}
}

// CanonicalKey renders a membership reference in the canonical form used for matching.
// Native identities render as hex; strings are taken verbatim as already being hex.
func CanonicalKey(ref any) (string, bool) {
	switch v := ref.(type) {
	case Identity:
		return v.Hex(), true
	case string:
		return v, v != ""
	default:
		return "", false
	}
}
