package converter

import (
	"encoding/json"

	"github.com/cschleiden/go-dialogflow/backend/payload"
)

type jsonConverter struct{}

func (jc *jsonConverter) To(v any) (payload.Payload, error) {
	return json.Marshal(v)
}

func (jc *jsonConverter) From(data payload.Payload, vptr any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, vptr)
}
