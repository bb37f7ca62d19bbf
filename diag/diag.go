package diag

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cschleiden/go-dialogflow/backend"
)

const defaultCount = 25

// NewServeMux returns an *http.ServeMux that serves the diagnostics API at /api.
//
//	GET /api/?after={conversationID}&count={n}  lists conversations
//	GET /api/{conversationID}                    returns the dialog stack and workflow histories
func NewServeMux(b Backend) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		// Only support GET requests
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		relativeURL := strings.TrimPrefix(r.URL.Path, "/api/")

		// /api/
		if relativeURL == "" {
			query := r.URL.Query()

			count := defaultCount
			if countStr := query.Get("count"); countStr != "" {
				var err error
				count, err = strconv.Atoi(countStr)
				if err != nil || count <= 0 {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
			}

			conversations, err := b.GetConversations(r.Context(), query.Get("after"), count)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			if conversations == nil {
				conversations = []*ConversationRef{}
			}

			writeJSON(w, conversations)
			return
		}

		segments := strings.Split(relativeURL, "/")

		// /api/{conversationID}
		if len(segments) == 1 {
			state, err := b.GetConversationState(r.Context(), segments[0])
			if err != nil {
				if errors.Is(err, backend.ErrConversationNotFound) {
					w.WriteHeader(http.StatusNotFound)
					return
				}

				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			writeJSON(w, NewConversationInfo(state))
			return
		}

		w.WriteHeader(http.StatusNotFound)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
