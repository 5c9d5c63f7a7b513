package discord

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
)

// serveFrame reads one frame from conn and replies with the given opcode
// and payload. The decoded request is sent on the returned channel.
func serveFrame(t *testing.T, conn net.Conn, replyOp uint32, reply string) <-chan map[string]any {
	t.Helper()
	got := make(chan map[string]any, 1)
	go func() {
		header := make([]byte, 8)
		if _, err := io.ReadFull(conn, header); err != nil {
			t.Errorf("read header: %v", err)
			close(got)
			return
		}
		body := make([]byte, binary.LittleEndian.Uint32(header[4:8]))
		if _, err := io.ReadFull(conn, body); err != nil {
			t.Errorf("read body: %v", err)
			close(got)
			return
		}
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		got <- req

		out := make([]byte, 8+len(reply))
		binary.LittleEndian.PutUint32(out[0:4], replyOp)
		binary.LittleEndian.PutUint32(out[4:8], uint32(len(reply)))
		copy(out[8:], reply)
		_, _ = conn.Write(out)
	}()
	return got
}

func TestFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}

	payload := `{"cmd":"SET_ACTIVITY","nonce":"abc123"}`
	go func() {
		if err := c.writeFrame(opFrame, []byte(payload)); err != nil {
			t.Errorf("writeFrame: %v", err)
		}
	}()

	header := make([]byte, 8)
	if _, err := io.ReadFull(server, header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])

	if opcode != opFrame {
		t.Errorf("opcode = %d, want %d", opcode, opFrame)
	}
	if int(length) != len(payload) {
		t.Errorf("length = %d, want %d", length, len(payload))
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(server, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != payload {
		t.Errorf("body = %q, want %q", body, payload)
	}
}

func TestReadFrameLargePayload(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: server}

	large := make([]byte, 2048)
	for i := range large {
		large[i] = 'x'
	}

	go func() {
		header := make([]byte, 8)
		binary.LittleEndian.PutUint32(header[0:4], opFrame)
		binary.LittleEndian.PutUint32(header[4:8], uint32(len(large)))
		_, _ = client.Write(header)
		_, _ = client.Write(large)
	}()

	opcode, payload, err := c.readFrame()
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if opcode != opFrame {
		t.Errorf("opcode = %d, want %d", opcode, opFrame)
	}
	if len(payload) != len(large) {
		t.Errorf("payload length = %d, want %d", len(payload), len(large))
	}
}

func TestSetActivity_Payload(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	reqs := serveFrame(t, server, opFrame, `{"cmd":"SET_ACTIVITY","evt":null,"data":{}}`)

	end := int64(1700000180)
	err := c.SetActivity(&Activity{
		Type:       ActivityListening,
		Details:    "Bohemian Rhapsody",
		Timestamps: &Timestamps{End: &end},
		Assets:     &Assets{LargeImage: "noart", SmallImage: "playing"},
	})
	if err != nil {
		t.Fatalf("SetActivity: %v", err)
	}

	req := <-reqs
	if req["cmd"] != "SET_ACTIVITY" {
		t.Errorf("cmd = %v", req["cmd"])
	}
	if nonce, _ := req["nonce"].(string); len(nonce) != 36 {
		t.Errorf("nonce = %q, want a UUID", nonce)
	}
	args, _ := req["args"].(map[string]any)
	activity, _ := args["activity"].(map[string]any)
	if activity["details"] != "Bohemian Rhapsody" {
		t.Errorf("details = %v", activity["details"])
	}
	ts, _ := activity["timestamps"].(map[string]any)
	if ts["end"] != float64(end) {
		t.Errorf("end = %v, want %d", ts["end"], end)
	}
	if _, ok := ts["start"]; ok {
		t.Error("start should be omitted")
	}
}

func TestSetActivity_NilClears(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	reqs := serveFrame(t, server, opFrame, `{"cmd":"SET_ACTIVITY","evt":null}`)

	if err := c.SetActivity(nil); err != nil {
		t.Fatalf("SetActivity(nil): %v", err)
	}

	args, _ := (<-reqs)["args"].(map[string]any)
	activity, present := args["activity"]
	if !present || activity != nil {
		t.Errorf("activity = %v (present=%v), want explicit null", activity, present)
	}
}

func TestSetActivity_ErrorEvent(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	serveFrame(t, server, opFrame, `{"evt":"ERROR","data":{"code":4000,"message":"bad activity"}}`)

	err := c.SetActivity(&Activity{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != 4000 || apiErr.Message != "bad activity" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestSetActivity_CloseFrame(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	serveFrame(t, server, opClose, `{"code":1000,"message":"bye"}`)

	err := c.SetActivity(&Activity{})
	if err == nil {
		t.Fatal("expected error on close frame")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("a close frame is a transport failure, not an API error")
	}
}

func TestSocketDirs(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv("TMPDIR", "")
	t.Setenv("TMP", "")
	t.Setenv("TEMP", "")

	dirs := socketDirs()
	want := []string{
		"/run/user/1000",
		filepath.Join("/run/user/1000", "app/com.discordapp.Discord"),
		filepath.Join("/run/user/1000", "snap.discord"),
		"/tmp",
		filepath.Join("/tmp", "app/com.discordapp.Discord"),
		filepath.Join("/tmp", "snap.discord"),
	}
	if len(dirs) != len(want) {
		t.Fatalf("dirs = %v, want %v", dirs, want)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("dirs[%d] = %q, want %q", i, dirs[i], want[i])
		}
	}
}
