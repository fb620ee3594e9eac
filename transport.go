package offload

import "github.com/offload-go/offload/internal/spawn"

// Transport defines the interface for worker communication.
// Implement this to provide custom transports for testing or mocking.
//
// The default implementation re-executes the current binary as a worker
// process. Custom transports can be injected via WithTransport.
type Transport = spawn.Transport

// Spec describes one worker invocation as handed to a Transport.
type Spec = spawn.Spec
