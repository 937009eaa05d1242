package mcputils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockArgumentGetter implements ArgumentGetter for testing
type mockArgumentGetter struct {
	args map[string]interface{}
}

func (m *mockArgumentGetter) GetArguments() map[string]interface{} {
	return m.args
}

// positionRequest mirrors the shape of a tool request with a cursor.
type positionRequest struct {
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Character uint32   `json:"character"`
	Explain   bool     `json:"explain,omitempty"`
	Kinds     []string `json:"kinds,omitempty"`
}

func TestCoerceBindArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args map[string]interface{}
		want positionRequest
	}{
		{
			name: "proper types",
			args: map[string]interface{}{"file": "rtl/top.sv", "line": float64(3), "character": float64(7), "explain": true},
			want: positionRequest{File: "rtl/top.sv", Line: 3, Character: 7, Explain: true},
		},
		{
			name: "everything as strings",
			args: map[string]interface{}{"file": "top.sv", "line": "12", "character": "4", "explain": "true"},
			want: positionRequest{File: "top.sv", Line: 12, Character: 4, Explain: true},
		},
		{
			name: "JSON string array",
			args: map[string]interface{}{"file": "top.sv", "kinds": `["module", "instance"]`},
			want: positionRequest{File: "top.sv", Kinds: []string{"module", "instance"}},
		},
		{
			name: "comma separated fallback",
			args: map[string]interface{}{"file": "top.sv", "kinds": "port,net"},
			want: positionRequest{File: "top.sv", Kinds: []string{"port", "net"}},
		},
		{
			name: "invalid JSON kept as one element",
			args: map[string]interface{}{"file": "top.sv", "kinds": "[broken"},
			want: positionRequest{File: "top.sv", Kinds: []string{"[broken"}},
		},
		{
			name: "nulls and empty strings",
			args: map[string]interface{}{"file": "top.sv", "line": nil, "kinds": ""},
			want: positionRequest{File: "top.sv"},
		},
		{
			name: "weakly typed",
			args: map[string]interface{}{"file": 42, "line": "7", "explain": 1},
			want: positionRequest{File: "42", Line: 7, Explain: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got positionRequest
			require.NoError(t, CoerceBindArguments(&mockArgumentGetter{args: tt.args}, &got))
			if len(tt.want.Kinds) == 0 {
				assert.Empty(t, got.Kinds)
				got.Kinds, tt.want.Kinds = nil, nil
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceBindArguments_JSONObject(t *testing.T) {
	t.Parallel()

	type request struct {
		Module  string                 `json:"module"`
		Options map[string]interface{} `json:"options"`
	}

	var got request
	err := CoerceBindArguments(&mockArgumentGetter{args: map[string]interface{}{
		"module":  "top",
		"options": `{"depth": 3, "text": true}`,
	}}, &got)
	require.NoError(t, err)

	assert.Equal(t, "top", got.Module)
	assert.Equal(t, float64(3), got.Options["depth"]) // JSON numbers decode as float64
	assert.Equal(t, true, got.Options["text"])
}

func TestCoerceBindArguments_Invalid(t *testing.T) {
	t.Parallel()

	var got positionRequest
	err := CoerceBindArguments(&mockArgumentGetter{args: map[string]interface{}{
		"line": "not a number",
	}}, &got)
	assert.Error(t, err)
}
