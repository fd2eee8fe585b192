package dto

// KeyMaterial is the signing material the key management service derives for a
// single (network, derivation index) pair. The private key only ever lives in
// memory for the duration of one signing operation and is never persisted.
type KeyMaterial struct {
	Network         string
	DerivationIndex int64
	PrivateKey      []byte
	PublicKey       []byte
}
