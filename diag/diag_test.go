package diag_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/backend/memory"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/diag"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, diag.Backend) {
	c := clock.NewMock()
	b := memory.NewMemoryBackend(backend.WithClock(c))

	for _, id := range []string{"c1", "c2", "c3"} {
		c.Add(time.Second)

		s := core.NewConversationState(id, c.Now())
		ws := core.NewWorkflowState([]byte(`{"shop":"test"}`))
		ws.History = append(ws.History, history.Entry{
			Kind:     history.KindAsyncCall,
			HashedID: history.HashID("a"),
			Result:   history.Result{Success: true, Value: []byte(`42`)},
		})
		ws.ResumeState = &history.ResumeState{Kind: history.KindWait}

		wsb, err := json.Marshal(ws)
		require.NoError(t, err)

		s.DialogStack.Push(&core.DialogInstance{ID: "root", State: wsb})
		s.DialogStack.Push(&core.DialogInstance{ID: "text", State: []byte(`{"retries":1}`)})

		require.NoError(t, b.SaveConversationState(context.Background(), s))
	}

	srv := httptest.NewServer(diag.NewServeMux(b))
	t.Cleanup(srv.Close)

	return srv, b
}

func get(t *testing.T, url string, v any) int {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK && v != nil {
		require.Equal(t, "application/json", res.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(res.Body).Decode(v))
	}

	return res.StatusCode
}

func Test_Diag(t *testing.T) {
	tests := []struct {
		name string
		f    func(t *testing.T, url string)
	}{
		{
			name: "ListConversations",
			f: func(t *testing.T, url string) {
				var refs []*diag.ConversationRef
				require.Equal(t, http.StatusOK, get(t, url+"/api/", &refs))

				require.Len(t, refs, 3)
				require.Equal(t, "c3", refs[0].ConversationID)
				require.Equal(t, "c1", refs[2].ConversationID)
				require.Equal(t, "text", refs[0].ActiveDialog)
				require.Equal(t, 2, refs[0].Depth)
				require.Equal(t, int64(1), refs[0].Version)
			},
		},
		{
			name: "ListConversationsPaged",
			f: func(t *testing.T, url string) {
				var refs []*diag.ConversationRef
				require.Equal(t, http.StatusOK, get(t, url+"/api/?after=c3&count=1", &refs))

				require.Len(t, refs, 1)
				require.Equal(t, "c2", refs[0].ConversationID)

				require.Equal(t, http.StatusOK, get(t, url+"/api/?after=c1", &refs))
				require.Empty(t, refs)
			},
		},
		{
			name: "InvalidCount",
			f: func(t *testing.T, url string) {
				require.Equal(t, http.StatusBadRequest, get(t, url+"/api/?count=-1", nil))
				require.Equal(t, http.StatusBadRequest, get(t, url+"/api/?count=x", nil))
			},
		},
		{
			name: "GetConversation",
			f: func(t *testing.T, url string) {
				var info diag.ConversationInfo
				require.Equal(t, http.StatusOK, get(t, url+"/api/c2", &info))

				require.Equal(t, "c2", info.ConversationID)
				require.Len(t, info.Dialogs, 2)

				root := info.Dialogs[0]
				require.Equal(t, "root", root.ID)
				require.NotNil(t, root.Workflow)
				require.Len(t, root.Workflow.History, 1)
				require.Equal(t, history.KindAsyncCall, root.Workflow.History[0].Kind)
				require.Equal(t, history.KindWait, root.Workflow.ResumeState.Kind)
				require.JSONEq(t, `{"shop":"test"}`, string(root.Workflow.Options))

				prompt := info.Dialogs[1]
				require.Nil(t, prompt.Workflow)
				require.JSONEq(t, `{"retries":1}`, string(prompt.State))
			},
		},
		{
			name: "UnknownConversation",
			f: func(t *testing.T, url string) {
				require.Equal(t, http.StatusNotFound, get(t, url+"/api/unknown", nil))
				require.Equal(t, http.StatusNotFound, get(t, url+"/api/c1/history", nil))
			},
		},
		{
			name: "OnlyGet",
			f: func(t *testing.T, url string) {
				res, err := http.Post(url+"/api/", "application/json", nil)
				require.NoError(t, err)
				res.Body.Close()

				require.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t)

			tt.f(t, srv.URL)
		})
	}
}
