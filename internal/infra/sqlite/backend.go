package sqlite

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/maxent-labs/gisstore/internal/domain"
)

// Backend kinds accepted by NewBackend.
const (
	BackendSQLite = "sqlite"
	BackendText   = "text"
	BackendBinary = "binary"
)

// NewBackend resolves a configured backend kind to a structural writer.
// Streaming scalar backends are recognised but not provided by this module.
func NewBackend(kind string, opts Options, logger *zap.Logger) (domain.StructuralWriter, error) {
	switch kind {
	case "", BackendSQLite:
		if _, err := opts.synchronous(); err != nil {
			return nil, err
		}
		return NewWriter(opts, logger), nil
	case BackendText, BackendBinary:
		return nil, domain.NewPersistError(domain.ErrUnsupportedOperation, "select backend",
			fmt.Errorf("%s is a streaming scalar backend", kind))
	default:
		return nil, fmt.Errorf("unsupported writer backend: %s", kind)
	}
}
