package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"lead-chat/internal/testutil/liveserver"
	"lead-chat/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := config.InitTest(); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// syncBuffer tail 在后台写输出, 测试同时读取
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var attachedPath = regexp.MustCompile(`leads/1/\S+`)

type harness struct {
	serverURL string
	dir       string
}

func newHarness(t *testing.T) *harness {
	server := liveserver.Start(t)
	liveserver.Register(t, server, "alice", "alice")
	liveserver.Register(t, server, "bob", "bob")
	return &harness{serverURL: server.URL, dir: t.TempDir()}
}

func (h *harness) runContext(ctx context.Context, as string, out *syncBuffer, args ...string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{
		"--server", h.serverURL,
		"--session-file", filepath.Join(h.dir, as+".json"),
	}, args...))
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd.ExecuteContext(ctx)
}

func (h *harness) run(t *testing.T, as string, args ...string) string {
	t.Helper()
	out := &syncBuffer{}
	require.NoError(t, h.runContext(context.Background(), as, out, args...), "args=%v output=%s", args, out.String())
	return out.String()
}

func (h *harness) login(t *testing.T, as string) {
	out := h.run(t, as, "login", as, "-p", liveserver.Password)
	require.Contains(t, out, "Logged in as "+as)
}

func sentID(t *testing.T, out string) string {
	line := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(line, "Sent "), "unexpected output %q", out)
	return strings.TrimPrefix(line, "Sent ")
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	err := h.runContext(context.Background(), "nobody", &syncBuffer{}, "messages", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	err = h.runContext(context.Background(), "alice", &syncBuffer{}, "login", "alice")
	assert.Error(t, err, "password is required")

	err = h.runContext(context.Background(), "alice", &syncBuffer{}, "login", "alice", "-p", "wrong")
	assert.Error(t, err)
}

func TestChatCommandFlow(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")
	h.login(t, "bob")

	assert.Contains(t, h.run(t, "alice", "whoami"), "alice (alice)")
	assert.Contains(t, h.run(t, "alice", "leads"), "No leads")
	assert.Contains(t, h.run(t, "alice", "leads", "create", "Acme", "Corp"), "Created lead 1: Acme Corp")
	assert.Contains(t, h.run(t, "bob", "leads"), "1\tAcme Corp")

	id := sentID(t, h.run(t, "alice", "send", "1", "ping", "@bob", "about", "pricing"))
	history := h.run(t, "bob", "messages", "1")
	assert.Contains(t, history, "["+id+"]")
	assert.Contains(t, history, "alice: ping @bob about pricing")

	mentions := h.run(t, "bob", "mentions")
	assert.Contains(t, mentions, "message "+id)
	mentionID := strings.Fields(mentions)[0]
	assert.Contains(t, h.run(t, "bob", "mentions", "read", mentionID), "Marked mention")
	assert.Contains(t, h.run(t, "bob", "mentions"), "No unread mentions")

	err := h.runContext(context.Background(), "bob", &syncBuffer{}, "edit", "1", id, "not mine")
	assert.Error(t, err)

	assert.Contains(t, h.run(t, "alice", "edit", "1", id, "ping", "about", "pricing"), "Edited "+id)
	assert.Contains(t, h.run(t, "alice", "messages", "1"), "ping about pricing (edited)")

	assert.Contains(t, h.run(t, "alice", "delete", "1", id), "Deleted "+id)
	assert.Contains(t, h.run(t, "alice", "messages", "1"), "No messages yet")

	assert.Contains(t, h.run(t, "alice", "logout"), "Logged out")
	err = h.runContext(context.Background(), "alice", &syncBuffer{}, "whoami")
	assert.Error(t, err)
}

func TestAttachmentCommands(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")
	h.run(t, "alice", "leads", "create", "Acme")

	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("follow up next week"), 0o600))

	uploaded := h.run(t, "alice", "upload", "1", file)
	fields := strings.Split(strings.TrimSpace(uploaded), "\t")
	require.GreaterOrEqual(t, len(fields), 2)
	assert.True(t, strings.HasPrefix(fields[0], "leads/1/"))
	assert.Equal(t, "19 B", fields[1])

	id := sentID(t, h.run(t, "alice", "send", "1", "notes attached", "--attach", file))
	history := h.run(t, "alice", "messages", "1")
	assert.Contains(t, history, "["+id+"]")
	assert.Contains(t, history, "notes.txt (19 B) leads/1/")

	// 只有关联到消息的附件可以签名
	err := h.runContext(context.Background(), "alice", &syncBuffer{}, "url", fields[0])
	assert.Error(t, err)

	path := attachedPath.FindString(history)
	require.NotEmpty(t, path)
	url := h.run(t, "alice", "url", path)
	assert.True(t, strings.HasPrefix(url, "http://example.test/api/files/leads/1/"), url)
	assert.Contains(t, url, "sig=")

	err = h.runContext(context.Background(), "alice", &syncBuffer{}, "url", "leads/1/missing.txt")
	assert.Error(t, err)
}

func TestTailFollowsNewMessages(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")
	h.login(t, "bob")
	h.run(t, "alice", "leads", "create", "Acme")
	first := sentID(t, h.run(t, "alice", "send", "1", "kickoff"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- h.runContext(ctx, "bob", out, "tail", "1") }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "kickoff") }, 5*time.Second, 20*time.Millisecond)

	second := sentID(t, h.run(t, "alice", "send", "1", "second", "note"))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "alice: second note") }, 5*time.Second, 20*time.Millisecond)

	h.run(t, "alice", "delete", "1", first)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "["+first+"] deleted") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not stop")
	}
	assert.Equal(t, 1, strings.Count(out.String(), "["+second+"]"))
}
