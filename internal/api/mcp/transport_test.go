package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattiasfr/kintree/internal/api/mcp"
	"github.com/mattiasfr/kintree/internal/storage/memory"
)

func TestStdioTransportServesRequests(t *testing.T) {
	srv := mcp.NewServer(memory.NewStore(nil))

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"create_person","params":{"id":"I1"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"get_person","params":{"id":"I1"}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	transport := mcp.NewStdioTransport(srv, strings.NewReader(input), &out)

	// Clean EOF after the last line returns nil.
	require.NoError(t, transport.Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, "blank input lines produce no response")

	for _, raw := range lines {
		var resp mcp.JSONRPCResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &resp))
		assert.Equal(t, "2.0", resp.JSONRPC)
		assert.Nil(t, resp.Error)
	}
}

func TestStdioTransportMalformedLineStillResponds(t *testing.T) {
	srv := mcp.NewServer(memory.NewStore(nil))

	var out bytes.Buffer
	transport := mcp.NewStdioTransport(srv, strings.NewReader("garbage\n"), &out)
	require.NoError(t, transport.Serve(context.Background()))

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ErrCodeParseError, resp.Error.Code)
}

func TestStdioTransportContextCancellation(t *testing.T) {
	srv := mcp.NewServer(memory.NewStore(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	transport := mcp.NewStdioTransport(srv, strings.NewReader(""), &out)
	err := transport.Serve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
