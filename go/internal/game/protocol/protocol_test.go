package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEngine(t *testing.T) {
	cases := []struct {
		name    string
		frame   string
		want    EnginePacket
		wantErr error
	}{
		{name: "ping", frame: "2", want: EnginePacket{Type: EnginePing}},
		{name: "probe", frame: "3probe", want: EnginePacket{Type: EnginePong, Data: "probe"}},
		{name: "message", frame: `42["a",1]`, want: EnginePacket{Type: EngineMessage, Data: `2["a",1]`}},
		{name: "empty", frame: "", wantErr: ErrEmptyPacket},
		{name: "unknown", frame: "9", wantErr: ErrUnknownPacketType},
		{name: "binary", frame: "bAAEC", wantErr: ErrUnsupportedBinary},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEngine([]byte(tc.frame))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodePollingPayload(t *testing.T) {
	body := []byte("0{\"sid\":\"abc\",\"upgrades\":[\"websocket\"],\"pingInterval\":25000,\"pingTimeout\":20000}\x1e6")

	packets, err := DecodePollingPayload(body)
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Equal(t, EngineNoop, packets[1].Type)

	info, err := ParseOpen(packets[0])
	require.NoError(t, err)
	assert.Equal(t, "abc", info.SID)
	assert.Equal(t, 25000, info.PingInterval)
	assert.True(t, info.CanUpgradeTo("websocket"))
	assert.False(t, info.CanUpgradeTo("webtransport"))
}

func TestParseOpenRejectsMissingSID(t *testing.T) {
	_, err := ParseOpen(EnginePacket{Type: EngineOpen, Data: `{"pingInterval":1}`})
	assert.ErrorIs(t, err, ErrMalformedOpen)

	_, err = ParseOpen(EnginePacket{Type: EnginePing})
	assert.ErrorIs(t, err, ErrMalformedOpen)
}

func TestDecodeSocket(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantType  SocketPacketType
		wantNS    string
		wantAck   int
		wantData  string
		wantError error
	}{
		{name: "connect ack", in: `0{"sid":"x"}`, wantType: SocketConnect, wantNS: "/", wantAck: -1, wantData: `{"sid":"x"}`},
		{name: "event", in: `2["new_turn",{"round":1}]`, wantType: SocketEvent, wantNS: "/", wantAck: -1, wantData: `["new_turn",{"round":1}]`},
		{name: "event with ack id", in: `212["x"]`, wantType: SocketEvent, wantNS: "/", wantAck: 12, wantData: `["x"]`},
		{name: "namespaced", in: `2/admin,["x"]`, wantType: SocketEvent, wantNS: "/admin", wantAck: -1, wantData: `["x"]`},
		{name: "namespace only", in: `1/admin`, wantType: SocketDisconnect, wantNS: "/admin", wantAck: -1},
		{name: "connect error", in: `4{"message":"not authorized"}`, wantType: SocketConnectError, wantNS: "/", wantAck: -1, wantData: `{"message":"not authorized"}`},
		{name: "binary", in: `51-["x",{"_placeholder":true,"num":0}]`, wantError: ErrUnsupportedBinary},
		{name: "bad json", in: `2["x"`, wantError: ErrMalformedEvent},
		{name: "empty", in: ``, wantError: ErrEmptyPacket},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DecodeSocket(tc.in)
			if tc.wantError != nil {
				assert.ErrorIs(t, err, tc.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, p.Type)
			assert.Equal(t, tc.wantNS, p.Namespace)
			assert.Equal(t, tc.wantAck, p.AckID)
			assert.Equal(t, tc.wantData, string(p.Data))
		})
	}
}

func TestEncodeEventFraming(t *testing.T) {
	p, err := EncodeEvent("submit_word", map[string]string{"word": "CAT"})
	require.NoError(t, err)

	frame := EncodeEngine(EnginePacket{Type: EngineMessage, Data: EncodeSocket(p)})
	assert.Equal(t, `42["submit_word",{"word":"CAT"}]`, string(frame))

	decoded, err := DecodeEngine(frame)
	require.NoError(t, err)
	sp, err := DecodeSocket(decoded.Data)
	require.NoError(t, err)
	name, payload, err := DecodeEvent(sp)
	require.NoError(t, err)
	assert.Equal(t, "submit_word", name)
	assert.JSONEq(t, `{"word":"CAT"}`, string(payload))
}

func TestDecodeEventWithoutPayload(t *testing.T) {
	name, payload, err := DecodeEvent(SocketPacket{Type: SocketEvent, Data: json.RawMessage(`["connected"]`)})
	require.NoError(t, err)
	assert.Equal(t, "connected", name)
	assert.Nil(t, payload)

	_, _, err = DecodeEvent(SocketPacket{Type: SocketEvent, Data: json.RawMessage(`[]`)})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestConnectErrorMessage(t *testing.T) {
	assert.Equal(t, "bad token", ConnectErrorMessage(SocketPacket{Data: json.RawMessage(`{"message":"bad token"}`)}))
	assert.Equal(t, `"plain"`, ConnectErrorMessage(SocketPacket{Data: json.RawMessage(`"plain"`)}))
}

func TestEncodeSocketConnectWithAuth(t *testing.T) {
	p := SocketPacket{Type: SocketConnect, Namespace: DefaultNamespace, AckID: -1, Data: json.RawMessage(`{"token":"t"}`)}
	assert.Equal(t, `0{"token":"t"}`, EncodeSocket(p))
}
