package domain

// DataKey is a freshly generated data encryption key as returned by the KMS.
//
// Plaintext must be zeroed by the caller as soon as it has been used; Wrapped is
// safe to persist.
type DataKey struct {
	Plaintext []byte
	Wrapped   []byte
}

// Zero clears the plaintext half of the key.
func (d *DataKey) Zero() {
	if d == nil {
		return
	}
	Zero(d.Plaintext)
}
