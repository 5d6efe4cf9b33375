package rtc

import (
	"strings"
	"sync"

	apperrors "github.com/louisbranch/covey.town/internal/platform/errors"
	"github.com/zeebo/blake3"
)

// Ledger records which provider credentials were already spent. It keeps
// BLAKE3 digests only, so raw credentials never outlive the connect call.
type Ledger struct {
	mu    sync.Mutex
	spent map[[32]byte]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{spent: map[[32]byte]struct{}{}}
}

// Consume marks credential as spent. It fails when the credential is blank or
// was consumed before.
func (l *Ledger) Consume(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return apperrors.New(apperrors.CodeCredentialMissing, "provider credential is required")
	}
	digest := blake3.Sum256([]byte(credential))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.spent == nil {
		l.spent = map[[32]byte]struct{}{}
	}
	if _, ok := l.spent[digest]; ok {
		return apperrors.New(apperrors.CodeCredentialReused, "provider credential was already used")
	}
	l.spent[digest] = struct{}{}
	return nil
}

// Len returns the number of consumed credentials.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.spent)
}
