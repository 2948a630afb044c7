package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// actionNone is the directive type for plain conversation.
const actionNone = "none"

// directive is the JSON contract the model must answer with.
type directive struct {
	Reply  string           `json:"reply"`
	Action *directiveAction `json:"action"`
}

// directiveAction carries the model's choice of skill and its arguments.
type directiveAction struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// parseDirective validates raw model output against the directive
// contract: a single JSON object with a non-empty reply and an action
// whose type is either "none" or a registered skill. known reports
// whether an action type has a connector. Anything else is
// ErrMalformedModelResponse.
func parseDirective(raw string, known func(string) bool) (*directive, error) {
	cleaned := stripFences(raw)

	var dir directive
	if err := json.Unmarshal([]byte(cleaned), &dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelResponse, err)
	}

	if strings.TrimSpace(dir.Reply) == "" {
		return nil, fmt.Errorf("%w: missing reply", ErrMalformedModelResponse)
	}

	if dir.Action != nil {
		switch {
		case dir.Action.Type == "" || dir.Action.Type == actionNone:
			dir.Action = nil
		case !known(dir.Action.Type):
			return nil, fmt.Errorf("%w: unknown action type %q", ErrMalformedModelResponse, dir.Action.Type)
		}
	}

	return &dir, nil
}

// stripFences removes a Markdown code fence wrapper if the model added
// one despite being told not to. Fences inside the JSON are untouched.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// stringParams flattens the directive's params into the string map the
// connectors take. Scalars are formatted; nested values are re-encoded as
// JSON so nothing the model sent is silently lost.
func (a *directiveAction) stringParams() map[string]string {
	params := make(map[string]string, len(a.Params))
	for key, value := range a.Params {
		switch v := value.(type) {
		case string:
			params[key] = v
		case float64:
			params[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[key] = strconv.FormatBool(v)
		case nil:
			// omitted
		default:
			if encoded, err := json.Marshal(v); err == nil {
				params[key] = string(encoded)
			}
		}
	}
	return params
}
