// Package secure holds raw secret payloads in protected memory between
// fetch and flattening. Payloads fetched from Secrets Manager or Key Vault
// sit encrypted and mlock-ed while the source decides how to process them,
// and are wiped as soon as processing finishes.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Payload is an encrypted in-memory copy of one fetched secret value.
type Payload struct {
	enclave *memguard.Enclave

	mu        sync.Mutex
	destroyed bool
}

// NewPayload copies data into an encrypted enclave. The caller keeps
// ownership of data and should let it go out of scope promptly; memguard
// wipes its own copy on Destroy. Empty payloads carry no enclave since
// memguard rejects zero-length buffers.
func NewPayload(data []byte) *Payload {
	if len(data) == 0 {
		return &Payload{}
	}
	return &Payload{enclave: memguard.NewEnclave(data)}
}

// With decrypts the payload and passes the plaintext to fn. The plaintext
// buffer is wiped when fn returns; fn must not retain the slice.
func (p *Payload) With(fn func(data []byte) error) error {
	p.mu.Lock()
	if p.destroyed || p.enclave == nil {
		p.mu.Unlock()
		return fn(nil)
	}
	locked, err := p.enclave.Open()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy prevents further use. Idempotent; after Destroy, With sees a nil
// payload. The enclave's encrypted bytes are left to the garbage collector,
// which is safe because they are ciphertext.
func (p *Payload) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.enclave = nil
	p.destroyed = true
}
