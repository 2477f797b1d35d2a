package leadchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lead-chat/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeSubscription struct {
	leadID uint
	events chan Event

	mu           sync.Mutex
	done         chan struct{}
	closed       bool
	unsubscribed bool
}

func newFakeSubscription(leadID uint) *fakeSubscription {
	return &fakeSubscription{leadID: leadID, events: make(chan Event, 16), done: make(chan struct{})}
}

func (s *fakeSubscription) LeadID() uint          { return s.leadID }
func (s *fakeSubscription) Events() <-chan Event  { return s.events }
func (s *fakeSubscription) Done() <-chan struct{} { return s.done }
func (s *fakeSubscription) Unsubscribe()          { s.close(true) }
func (s *fakeSubscription) drop()                 { s.close(false) }
func (s *fakeSubscription) isUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}
func (s *fakeSubscription) isClosed() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.closed }

func (s *fakeSubscription) close(unsubscribe bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if unsubscribe {
		s.unsubscribed = true
	}
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
	close(s.done)
}

func (s *fakeSubscription) push(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- event
	}
}

// fakeDataLayer 内存中的后端, 作者固定为 userID
type fakeDataLayer struct {
	mu        sync.Mutex
	userID    uint
	messages  map[uint][]model.Message
	directory []model.DirectoryEntry
	nextID    int

	fetchErr   error
	createErr  error
	updateErr  error
	deleteErr  error
	mentionErr error
	subErr     error
	uploadErr  error

	createGate chan struct{}
	subGates   map[uint]chan struct{}

	created      []string
	mentionCalls map[string][]uint
	fetchCalls   map[uint]int
	subs         []*fakeSubscription
	deleted      []string
}

func newFakeDataLayer(userID uint) *fakeDataLayer {
	return &fakeDataLayer{
		userID:       userID,
		messages:     make(map[uint][]model.Message),
		mentionCalls: make(map[string][]uint),
		fetchCalls:   make(map[uint]int),
		subGates:     make(map[uint]chan struct{}),
	}
}

func (f *fakeDataLayer) FetchMessages(ctx context.Context, leadID uint) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls[leadID]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]model.Message(nil), f.messages[leadID]...), nil
}

func (f *fakeDataLayer) CreateMessage(ctx context.Context, leadID uint, body string, attachments []model.Attachment) (*model.Message, error) {
	f.mu.Lock()
	gate := f.createGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, body)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	m := model.Message{
		ID:          fmt.Sprintf("m-%d", f.nextID),
		LeadID:      leadID,
		AuthorID:    f.userID,
		Body:        body,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	f.messages[leadID] = append(f.messages[leadID], m)
	return &m, nil
}

func (f *fakeDataLayer) UpdateMessage(ctx context.Context, messageID, body string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for leadID, list := range f.messages {
		for i := range list {
			if list[i].ID == messageID {
				list[i].Body = body
				list[i].Edited = true
				list[i].UpdatedAt = time.Now()
				updated := list[i]
				f.messages[leadID] = list
				return &updated, nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeDataLayer) DeleteMessage(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return f.deleteErr
}

func (f *fakeDataLayer) CreateMentions(ctx context.Context, messageID string, userIDs []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mentionCalls[messageID] = userIDs
	return f.mentionErr
}

func (f *fakeDataLayer) FetchMentionableUsers(ctx context.Context) ([]model.DirectoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.directory, nil
}

func (f *fakeDataLayer) Subscribe(ctx context.Context, leadID uint) (Subscription, error) {
	f.mu.Lock()
	gate := f.subGates[leadID]
	err := f.subErr
	f.mu.Unlock()

	// 确认晚到: 忽略 ctx, 模拟取消前已经发出的握手
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	sub := newFakeSubscription(leadID)
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeDataLayer) CreateSignedDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://files.example/%s?ttl=%d", path, int(ttl.Seconds())), nil
}

func (f *fakeDataLayer) UploadAttachment(ctx context.Context, leadID uint, name string, content io.Reader) (*model.Attachment, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	return &model.Attachment{Path: fmt.Sprintf("leads/%d/%s", leadID, name), Name: name, Size: int64(len(data))}, nil
}

func (f *fakeDataLayer) seed(leadID uint, messages ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[leadID] = append(f.messages[leadID], messages...)
}

func (f *fakeDataLayer) subscriptions() []*fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSubscription(nil), f.subs...)
}

func (f *fakeDataLayer) activeSubscriptions() []*fakeSubscription {
	var active []*fakeSubscription
	for _, s := range f.subscriptions() {
		if !s.isClosed() {
			active = append(active, s)
		}
	}
	return active
}

func (f *fakeDataLayer) fetchCount(leadID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[leadID]
}

func setupPanel(t *testing.T, dl *fakeDataLayer, vp Viewport) (*Panel, *Inbox) {
	inbox := NewInbox()
	panel := NewPanel(dl, PanelOptions{UserID: dl.userID, Viewport: vp, Notifier: inbox})
	t.Cleanup(panel.Close)
	return panel, inbox
}

func mountAndWait(t *testing.T, panel *Panel, leadID uint) {
	require.NoError(t, panel.Mount(leadID))
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, panel.WaitReady(ctx))
	require.Eventually(t, func() bool { return panel.State() == StateActive }, waitFor, 5*time.Millisecond)
}

func TestPanelMountLoadsHistory(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(7, msg("a", 1, "first"), msg("b", 2, "second"))
	vp := &fakeViewport{offset: 0, max: 800}
	panel, _ := setupPanel(t, dl, vp)

	assert.ErrorIs(t, panel.Mount(0), ErrNoLead)

	mountAndWait(t, panel, 7)
	assert.Equal(t, uint(7), panel.LeadID())
	assert.False(t, panel.Loading())
	assert.Equal(t, []string{"a", "b"}, ids(panel.Messages()))
	assert.Equal(t, 1, vp.scrollCount(), "initial load scrolls to the latest message")
	assert.False(t, panel.HasUnseenMessages())
}

func TestPanelSendTrimsAndDeduplicatesEcho(t *testing.T) {
	dl := newFakeDataLayer(1)
	panel, _ := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	_, err := panel.Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyBody)

	sent, err := panel.Send(context.Background(), "  hi team  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi team", sent.Body)
	assert.Equal(t, []string{"hi team"}, dl.created)

	sub := dl.activeSubscriptions()[0]
	echo := *sent
	sub.push(Event{Kind: EventInserted, Message: &echo})
	sub.push(Event{Kind: EventInserted, Message: &model.Message{ID: "other", LeadID: 3, Body: "from bob"}})

	require.Eventually(t, func() bool { return len(panel.Messages()) == 2 }, waitFor, 5*time.Millisecond)
	messages := panel.Messages()
	assert.Equal(t, []string{sent.ID, "other"}, ids(messages))
	assert.Equal(t, "hi team", messages[0].Body)
}

func TestPanelSendCreatesMentions(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.directory = []model.DirectoryEntry{{ID: 2, Name: "Bob"}, {ID: 3, Name: "carol"}}
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	sent, err := panel.Send(context.Background(), "hey @bob and @Carol, @bob again @dave", nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3}, dl.mentionCalls[sent.ID])

	noMentions, err := panel.Send(context.Background(), "plain text", nil)
	require.NoError(t, err)
	_, called := dl.mentionCalls[noMentions.ID]
	assert.False(t, called)

	dl.mentionErr = errors.New("mentions table locked")
	withMention, err := panel.Send(context.Background(), "@bob ping", nil)
	require.NoError(t, err, "the message itself was saved")
	_, ok := panel.store.Get(withMention.ID)
	assert.True(t, ok)
	require.Len(t, inbox.Pending(), 1)
	assert.Equal(t, SeverityInfo, inbox.Pending()[0].Severity)

	assert.Equal(t, `hey <span class="mention">@bob</span> &amp; @dave`, panel.RenderBody("hey @bob & @dave"))
}

func TestPanelSendFailurePreservesDraft(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.createErr = errors.New("network down")
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	panel.SetDraft("  important note ")
	_, err := panel.SendDraft(context.Background(), nil)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, uint(3), sendErr.LeadID)
	assert.Equal(t, "  important note ", panel.Draft())
	assert.Empty(t, panel.Messages())
	require.Len(t, inbox.Pending(), 1)
	assert.Equal(t, SeverityDestructive, inbox.Pending()[0].Severity)
	assert.False(t, panel.Sending())

	dl.createErr = nil
	_, err = panel.SendDraft(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, panel.Draft())
	assert.Len(t, panel.Messages(), 1)
}

func TestPanelRejectsConcurrentSend(t *testing.T) {
	dl := newFakeDataLayer(1)
	gate := make(chan struct{})
	dl.createGate = gate
	panel, _ := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	errCh := make(chan error, 1)
	go func() {
		_, err := panel.Send(context.Background(), "first", nil)
		errCh <- err
	}()
	require.Eventually(t, panel.Sending, waitFor, 5*time.Millisecond)

	_, err := panel.Send(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(gate)
	require.NoError(t, <-errCh)
	assert.False(t, panel.Sending())
	assert.Equal(t, []string{"first"}, dl.created)
}

func TestPanelScrollOnInsert(t *testing.T) {
	dl := newFakeDataLayer(1)
	vp := &fakeViewport{}
	panel, _ := setupPanel(t, dl, vp)
	mountAndWait(t, panel, 3)
	sub := dl.activeSubscriptions()[0]
	base := vp.scrollCount()

	vp.set(950, 1000)
	sub.push(Event{Kind: EventInserted, Message: &model.Message{ID: "x1", LeadID: 3, Body: "one"}})
	require.Eventually(t, func() bool { return vp.scrollCount() == base+1 }, waitFor, 5*time.Millisecond)
	assert.False(t, panel.HasUnseenMessages())

	vp.set(100, 1000)
	sub.push(Event{Kind: EventInserted, Message: &model.Message{ID: "x2", LeadID: 3, Body: "two"}})
	require.Eventually(t, panel.HasUnseenMessages, waitFor, 5*time.Millisecond)
	assert.Equal(t, base+1, vp.scrollCount())

	panel.ScrollToLatest()
	assert.False(t, panel.HasUnseenMessages())
	assert.Equal(t, base+2, vp.scrollCount())
}

// 在滚动回调中读取面板状态的视图
type reentrantViewport struct {
	fakeViewport
	panel  atomic.Pointer[Panel]
	unseen []bool
}

func (v *reentrantViewport) ScrollToBottom() {
	if p := v.panel.Load(); p != nil {
		unseen := p.HasUnseenMessages()
		_ = p.State()
		_ = p.Messages()
		v.mu.Lock()
		v.unseen = append(v.unseen, unseen)
		v.mu.Unlock()
	}
	v.fakeViewport.ScrollToBottom()
}

func TestPanelViewportMayReadStateWhileScrolling(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("a", 2, "hello"))
	vp := &reentrantViewport{}
	panel, _ := setupPanel(t, dl, vp)
	vp.panel.Store(panel)

	mountAndWait(t, panel, 3)
	assert.Equal(t, 1, vp.scrollCount())

	sub := dl.activeSubscriptions()[0]
	sub.push(Event{Kind: EventInserted, Message: &model.Message{ID: "x1", LeadID: 3, Body: "one"}})
	require.Eventually(t, func() bool { return vp.scrollCount() == 2 }, waitFor, 5*time.Millisecond)

	_, err := panel.Send(context.Background(), "reply", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, vp.scrollCount())

	panel.ScrollToLatest()
	assert.Equal(t, 4, vp.scrollCount())

	vp.mu.Lock()
	defer vp.mu.Unlock()
	assert.Equal(t, []bool{false, false, false, false}, vp.unseen)
}

func TestPanelAppliesUpdateAndDeleteEvents(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("a", 2, "hello"), msg("b", 2, "bye"))
	panel, _ := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)
	sub := dl.activeSubscriptions()[0]

	sub.push(Event{Kind: EventUpdated, Message: &model.Message{ID: "a", Body: "hello!", Edited: true}})
	sub.push(Event{Kind: EventDeleted, MessageID: "b"})
	sub.push(Event{Kind: EventDeleted, MessageID: "unknown"})
	sub.push(Event{Kind: EventInserted, Message: &model.Message{ID: "c", LeadID: 99, Body: "wrong lead"}})

	require.Eventually(t, func() bool { return len(panel.Messages()) == 1 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		got, _ := panel.store.Get("a")
		return got.Edited
	}, waitFor, 5*time.Millisecond)
	got, _ := panel.store.Get("a")
	assert.Equal(t, "hello!", got.Body)
}

func TestPanelEditRules(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("mine", 1, "draft"), msg("theirs", 2, "hello"))
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	_, err := panel.Edit(context.Background(), "mine", "   ")
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = panel.Edit(context.Background(), "theirs", "hijack")
	assert.ErrorIs(t, err, ErrNotAuthor)

	_, err = panel.Edit(context.Background(), "nope", "x")
	assert.ErrorIs(t, err, ErrUnknownMessage)

	updated, err := panel.Edit(context.Background(), "mine", " final ")
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Body)
	got, _ := panel.store.Get("mine")
	assert.Equal(t, "final", got.Body)
	assert.True(t, got.Edited)

	dl.updateErr = errors.New("conflict")
	_, err = panel.Edit(context.Background(), "mine", "again")
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	got, _ = panel.store.Get("mine")
	assert.Equal(t, "final", got.Body)
	assert.Len(t, inbox.Pending(), 1)
}

func TestPanelDeleteRestoresOnFailure(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("a", 1, "a"), msg("b", 1, "b"), msg("c", 2, "c"))
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	assert.ErrorIs(t, panel.Delete(context.Background(), "c"), ErrNotAuthor)

	dl.deleteErr = errors.New("server error")
	err := panel.Delete(context.Background(), "b")
	var deleteErr *DeleteError
	require.ErrorAs(t, err, &deleteErr)
	assert.Equal(t, "b", deleteErr.MessageID)
	assert.Equal(t, []string{"a", "b", "c"}, ids(panel.Messages()))
	require.Len(t, inbox.Pending(), 1)

	dl.deleteErr = nil
	require.NoError(t, panel.Delete(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c"}, ids(panel.Messages()))
	assert.Equal(t, []string{"b", "b"}, dl.deleted)
}

func TestPanelLeadSwitchBeforeHandshake(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(1, msg("a-1", 2, "lead A"))
	dl.seed(2, msg("b-1", 2, "lead B"))
	gateA := make(chan struct{})
	dl.subGates[1] = gateA
	panel, _ := setupPanel(t, dl, nil)

	require.NoError(t, panel.Mount(1))
	mountAndWait(t, panel, 2)

	close(gateA)
	require.Eventually(t, func() bool { return len(dl.subscriptions()) == 2 }, waitFor, 5*time.Millisecond)

	var subA, subB *fakeSubscription
	for _, s := range dl.subscriptions() {
		if s.leadID == 1 {
			subA = s
		} else {
			subB = s
		}
	}
	require.NotNil(t, subA)
	require.NotNil(t, subB)

	require.Eventually(t, subA.isUnsubscribed, waitFor, 5*time.Millisecond)
	active := dl.activeSubscriptions()
	require.Len(t, active, 1)
	assert.Equal(t, uint(2), active[0].leadID)

	subB.push(Event{Kind: EventInserted, Message: &model.Message{ID: "b-2", LeadID: 2, Body: "more B"}})
	require.Eventually(t, func() bool { return len(panel.Messages()) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"b-1", "b-2"}, ids(panel.Messages()))
	assert.Equal(t, 0, dl.fetchCount(1), "stale lead never loads")
	assert.Equal(t, uint(2), panel.LeadID())
	assert.Equal(t, StateActive, panel.State())
}

func TestPanelSwitchingLeadDiscardsMessages(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(1, msg("a-1", 2, "lead A"))
	panel, _ := setupPanel(t, dl, nil)

	mountAndWait(t, panel, 1)
	panel.SetDraft("for lead A")
	subA := dl.activeSubscriptions()[0]

	mountAndWait(t, panel, 2)
	assert.True(t, subA.isUnsubscribed())
	assert.Empty(t, panel.Messages())
	assert.Empty(t, panel.Draft())
}

func TestPanelResubscribesAfterDrop(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("a", 2, "hello"))
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	first := dl.activeSubscriptions()[0]
	dl.seed(3, msg("b", 2, "sent while offline"))
	first.drop()

	require.Eventually(t, func() bool {
		return len(dl.subscriptions()) == 2 && panel.State() == StateActive && dl.fetchCount(3) == 2
	}, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(panel.Messages()) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, ids(panel.Messages()))
	assert.NotEmpty(t, inbox.Pending())
}

func TestPanelSubscribeFailure(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("a", 2, "hello"))
	dl.subErr = errors.New("handshake refused")
	panel, inbox := setupPanel(t, dl, nil)

	require.NoError(t, panel.Mount(3))
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, panel.WaitReady(ctx))

	require.Eventually(t, func() bool { return panel.State() == StateUnsubscribed }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, ids(panel.Messages()), "history still loads without live updates")
	require.NotEmpty(t, inbox.Pending())
	assert.Equal(t, SeverityDestructive, inbox.Pending()[0].Severity)

	panel.SetDraft("half typed reply")
	dl.mu.Lock()
	dl.subErr = nil
	dl.mu.Unlock()
	require.NoError(t, panel.Reconnect())
	require.Eventually(t, func() bool { return panel.State() == StateActive }, waitFor, 5*time.Millisecond)
	assert.Equal(t, "half typed reply", panel.Draft(), "reconnecting the same lead keeps the draft")

	require.NoError(t, panel.Mount(4))
	assert.Empty(t, panel.Draft(), "switching leads clears the draft")
}

func TestPanelFetchFailure(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.fetchErr = errors.New("timeout")
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	assert.False(t, panel.Loading())
	assert.Empty(t, panel.Messages())
	require.Len(t, inbox.Pending(), 1)
	var fetchErr *FetchError
	require.ErrorAs(t, inbox.Pending()[0].Err, &fetchErr)
	assert.Equal(t, uint(3), fetchErr.LeadID)
}

func TestPanelUnmount(t *testing.T) {
	dl := newFakeDataLayer(1)
	dl.seed(3, msg("a", 2, "hello"))
	panel, _ := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	panel.Unmount()
	assert.Equal(t, StateUnsubscribed, panel.State())
	assert.Equal(t, uint(0), panel.LeadID())
	assert.Empty(t, panel.Messages())
	assert.Empty(t, dl.activeSubscriptions())

	_, err := panel.Send(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrNoLead)
	assert.ErrorIs(t, panel.Reconnect(), ErrNoLead)
}

func TestPanelAttachments(t *testing.T) {
	dl := newFakeDataLayer(1)
	panel, inbox := setupPanel(t, dl, nil)
	mountAndWait(t, panel, 3)

	att, err := panel.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "leads/3/notes.txt", att.Path)
	assert.Equal(t, int64(5), att.Size)

	url, err := panel.DownloadURL(context.Background(), *att)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/leads/3/notes.txt?ttl=60", url)

	sent, err := panel.Send(context.Background(), "see attached", []model.Attachment{*att})
	require.NoError(t, err)
	assert.Len(t, sent.Attachments, 1)

	dl.uploadErr = errors.New("bucket unavailable")
	_, err = panel.Upload(context.Background(), "big.pdf", strings.NewReader("x"))
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Len(t, inbox.Pending(), 1)
}
