// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"testing/iotest"

	fr "code.hybscloud.com/rpcframe"
)

// jsonrpcEnvelope is the minimal JSON-RPC shape used by decoder round trips.
type jsonrpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method,omitempty"`
}

func TestRoundTrip_WriterToReader(t *testing.T) {
	var wire bytes.Buffer
	w, err := fr.NewWriter(&wire)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	payloads := []string{
		"{}",
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":1,"result":{"capabilities":{}}}`,
		`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{}}`,
	}
	for _, p := range payloads {
		if _, err = w.WriteMessage([]byte(p)); err != nil {
			t.Fatalf("WriteMessage(%q): %v", p, err)
		}
	}

	r, err := fr.NewReader(iotest.OneByteReader(&wire), stringDecoder)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	for i, p := range payloads {
		msg, err := r.Next()
		if err != nil {
			t.Fatalf("Next[%d]: %v", i, err)
		}
		if msg != p {
			t.Fatalf("Next[%d]=%q want %q", i, msg, p)
		}
	}
	if _, err = r.Next(); err != io.EOF {
		t.Fatalf("err=%v want io.EOF", err)
	}
}

func TestRoundTrip_JSONDecoder(t *testing.T) {
	var wire bytes.Buffer
	w, err := fr.NewWriter(&wire)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	encode := func(m jsonrpcEnvelope) ([]byte, error) { return json.Marshal(m) }
	decode := func(payload []byte) (jsonrpcEnvelope, error) {
		var m jsonrpcEnvelope
		err := json.Unmarshal(payload, &m)
		return m, err
	}

	sent := jsonrpcEnvelope{JSONRPC: "2.0", ID: 42, Method: "workspace/symbol"}
	payload, err := encode(sent)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err = w.WriteMessage(payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	r, err := fr.NewReader(&wire, decode)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != sent {
		t.Fatalf("got %+v want %+v", got, sent)
	}
}
