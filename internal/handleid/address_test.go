package handleid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/model"
)

func TestAddress_String(t *testing.T) {
	testCases := []struct {
		name        string
		addr        Address
		expectedStr string
	}{
		{name: "output handle", addr: Source("a", "image"), expectedStr: "a:output:image"},
		{name: "input handle", addr: Target("node-1", "prompt"), expectedStr: "node-1:input:prompt"},
		{name: "zero address", addr: Address{}, expectedStr: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStr, tc.addr.String())
		})
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    bool
		expectedAddr Address
	}{
		{
			name:         "output handle",
			rawID:        "a:output:image",
			expectedAddr: Address{NodeID: "a", Direction: model.Output, Key: "image"},
		},
		{
			name:         "key containing separator",
			rawID:        "3f2c.9a:input:lora:weights",
			expectedAddr: Address{NodeID: "3f2c.9a", Direction: model.Input, Key: "lora:weights"},
		},
		{name: "error - empty string", rawID: "", expectErr: true},
		{name: "error - missing key", rawID: "a:input", expectErr: true},
		{name: "error - empty key", rawID: "a:input:", expectErr: true},
		{name: "error - unknown direction", rawID: "a:sideways:x", expectErr: true},
		{name: "error - invalid node id", rawID: "a b:input:x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedAddr, addr)
		})
	}
}

func TestAddress_RoundTrip(t *testing.T) {
	for _, id := range []string{"a:output:b", "node_7:input:images", "x-1:input:k:v"} {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())
		})
	}
}
