package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHashID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="},
		{"hello", "LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ="},
		{"ask", "Ly/H8unOE7CbhPY9VNC0pZ9NvUaupB2mcCOBfi0MXlk="},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			require.Equal(t, tt.want, HashID(tt.id))
		})
	}
}

func TestHashID_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.String().Draw(t, "a")
		b := rapid.String().Draw(t, "b")

		if HashID(a) != HashID(a) {
			t.Fatalf("hash of %q is not stable", a)
		}

		if a != b && HashID(a) == HashID(b) {
			t.Fatalf("hash collision for %q and %q", a, b)
		}
	})
}

func TestEntry_JSONLayout(t *testing.T) {
	e := Entry{
		Kind:     KindAsyncCall,
		HashedID: HashID("hello"),
		Result:   Succeeded([]byte(`"bot responding."`)),
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"kind": "AsyncCall",
		"hashedId": "LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=",
		"result": {"success": true, "value": "bot responding."}
	}`, string(b))

	f := Entry{Kind: KindBoundFunc, HashedID: HashID("ask"), Result: Failed(errors.New("boom"))}
	b, err = json.Marshal(f)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"kind": "boundFunc",
		"hashedId": "Ly/H8unOE7CbhPY9VNC0pZ9NvUaupB2mcCOBfi0MXlk=",
		"result": {"success": false, "error": "boom"}
	}`, string(b))
}

func TestResult_SucceededWithoutValue(t *testing.T) {
	b, err := json.Marshal(Succeeded(nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"success": true}`, string(b))
}

func TestResult_FailedNil(t *testing.T) {
	r := Failed(nil)
	require.False(t, r.Success)
	require.Equal(t, "unknown error", r.Error)
}

func TestResult_FailedEmptyMessage(t *testing.T) {
	r := Failed(errors.New(""))
	require.False(t, r.Success)
	require.Equal(t, "unknown error", r.Error)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"success": false, "error": "unknown error"}`, string(b))
}
