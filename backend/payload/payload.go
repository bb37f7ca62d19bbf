package payload

import "encoding/json"

// Payload is the serialized form of a value persisted in workflow state.
type Payload = json.RawMessage
