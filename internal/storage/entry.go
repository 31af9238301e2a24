package storage

import (
	"time"
)

// Params are the public PBE parameters of a store
type Params struct {
	Salt       string `json:"salt"`
	Algorithm  string `json:"algorithm"`
	Iterations uint32 `json:"iterations"`
}

// Entry is a named secret. Value is the Base64 ciphertext produced by the
// store's PBE service.
type Entry struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}
