package leadchat

import (
	"context"
	"io"
	"strings"
	"sync"

	"lead-chat/internal/mention"
	"lead-chat/internal/model"
	"lead-chat/pkg/logger"

	"go.uber.org/zap"
)

// State 订阅生命周期
type State int

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateActive
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	default:
		return "unsubscribed"
	}
}

type PanelOptions struct {
	UserID   uint // 当前会话用户, 用于作者校验
	Viewport Viewport
	Notifier Notifier
	// OnChange 在可见状态变化后调用, 不持有面板内部锁
	OnChange func()
}

// Panel 一个线索的聊天面板, 同一时间最多持有一个订阅
//
// 每次 Mount/Unmount 都会递增 generation; 异步结果在写入前比较 generation,
// 过期的加载结果和订阅确认被丢弃.
type Panel struct {
	dl       DataLayer
	userID   uint
	store    *MessageStore
	scroll   *ScrollController
	notifier Notifier
	onChange func()

	mu         sync.Mutex
	leadID     uint
	generation uint64
	state      State
	cancel     context.CancelFunc
	sub        Subscription
	directory  []model.DirectoryEntry
	loading    bool
	ready      chan struct{}
	draft      string
	sending    bool
	sendingGen uint64

	wg sync.WaitGroup
}

func NewPanel(dl DataLayer, opts PanelOptions) *Panel {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewInbox()
	}
	ready := make(chan struct{})
	close(ready)
	return &Panel{
		dl:       dl,
		userID:   opts.UserID,
		store:    NewMessageStore(),
		scroll:   NewScrollController(opts.Viewport),
		notifier: notifier,
		onChange: opts.OnChange,
		ready:    ready,
	}
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *Panel) notify(severity Severity, title string, err error) {
	p.notifier.Notify(Notification{Severity: severity, Title: title, Err: err})
}

// 调用方持有 p.mu
func (p *Panel) teardownLocked() Subscription {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	old := p.sub
	p.sub = nil
	p.state = StateUnsubscribed
	p.closeReadyLocked()
	return old
}

// 调用方持有 p.mu
func (p *Panel) closeReadyLocked() {
	select {
	case <-p.ready:
	default:
		close(p.ready)
	}
}

// Mount 打开一个线索; 已打开其他线索时先拆除旧订阅
func (p *Panel) Mount(leadID uint) error {
	return p.mount(leadID, false)
}

// keepDraft 为 true 且线索未变时保留草稿
func (p *Panel) mount(leadID uint, keepDraft bool) error {
	if leadID == 0 {
		return ErrNoLead
	}

	p.mu.Lock()
	if !keepDraft || p.leadID != leadID {
		p.draft = ""
	}
	old := p.teardownLocked()
	p.generation++
	gen := p.generation
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.leadID = leadID
	p.state = StateSubscribing
	p.loading = true
	p.ready = make(chan struct{})
	p.store.Clear()
	p.wg.Add(1)
	p.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	logger.L.Debug("Mounting lead chat", zap.Uint("leadID", leadID), zap.Uint64("generation", gen))

	go p.run(ctx, gen, leadID)
	p.changed()
	return nil
}

// Unmount 拆除订阅并丢弃消息
func (p *Panel) Unmount() {
	p.mu.Lock()
	old := p.teardownLocked()
	p.generation++
	p.leadID = 0
	p.loading = false
	p.draft = ""
	p.store.Clear()
	p.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	p.changed()
}

// Close 拆除订阅并等待后台任务退出
func (p *Panel) Close() {
	p.Unmount()
	p.wg.Wait()
}

// Reconnect 订阅失败后由用户手动重试, 草稿保留
func (p *Panel) Reconnect() error {
	p.mu.Lock()
	leadID, state := p.leadID, p.state
	p.mu.Unlock()

	if leadID == 0 {
		return ErrNoLead
	}
	if state != StateUnsubscribed {
		return nil
	}
	return p.mount(leadID, true)
}

func (p *Panel) isCurrent(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.generation
}

func (p *Panel) run(ctx context.Context, gen uint64, leadID uint) {
	defer p.wg.Done()

	p.loadDirectory(ctx, gen)

	for first := true; ; first = false {
		sub, err := p.dl.Subscribe(ctx, leadID)
		if err != nil {
			if ctx.Err() != nil || !p.isCurrent(gen) {
				return
			}
			p.mu.Lock()
			p.state = StateUnsubscribed
			p.mu.Unlock()
			logger.L.Warn("Failed to subscribe to lead channel", zap.Uint("leadID", leadID), zap.Error(err))
			p.notify(SeverityDestructive, "Live updates are unavailable", err)
			if first {
				p.loadInitial(ctx, gen, leadID)
			}
			p.changed()
			return
		}

		if !p.install(gen, sub) {
			// 确认到达时面板已切换到其他线索
			sub.Unsubscribe()
			return
		}

		p.loadInitial(ctx, gen, leadID)

		if !p.consume(ctx, gen, sub) {
			return
		}
		logger.L.Info("Lead channel dropped, resubscribing", zap.Uint("leadID", leadID))
		p.notify(SeverityInfo, "Connection lost, reloading messages", nil)
	}
}

func (p *Panel) loadDirectory(ctx context.Context, gen uint64) {
	users, err := p.dl.FetchMentionableUsers(ctx)
	if err != nil {
		// 目录缺失时 @name 保持为普通文本
		logger.L.Warn("Failed to load mentionable users", zap.Error(err))
		return
	}
	p.mu.Lock()
	if gen == p.generation {
		p.directory = users
	}
	p.mu.Unlock()
}

func (p *Panel) install(gen uint64, sub Subscription) bool {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return false
	}
	p.sub = sub
	p.state = StateActive
	p.mu.Unlock()

	p.changed()
	return true
}

func (p *Panel) loadInitial(ctx context.Context, gen uint64, leadID uint) {
	messages, err := p.dl.FetchMessages(ctx, leadID)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.loading = false
	if err != nil {
		p.store.Clear()
		p.closeReadyLocked()
		p.mu.Unlock()

		fetchErr := &FetchError{LeadID: leadID, Err: err}
		logger.L.Error("Failed to load messages", zap.Uint("leadID", leadID), zap.Error(err))
		p.notify(SeverityDestructive, "Could not load messages", fetchErr)
		p.changed()
		return
	}
	p.store.Replace(messages)
	p.scroll.markSeen()
	p.mu.Unlock()

	p.scroll.ScrollToBottom()

	p.mu.Lock()
	if gen == p.generation {
		p.closeReadyLocked()
	}
	p.mu.Unlock()
	p.changed()
}

// consume 返回 true 表示连接意外断开需要重新订阅
func (p *Panel) consume(ctx context.Context, gen uint64, sub Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-sub.Events():
			if !ok {
				return p.dropped(ctx, gen, sub)
			}
			p.apply(gen, event)
		}
	}
}

func (p *Panel) dropped(ctx context.Context, gen uint64, sub Subscription) bool {
	p.mu.Lock()
	if gen != p.generation || p.sub != sub {
		p.mu.Unlock()
		return false
	}
	p.sub = nil
	p.state = StateSubscribing
	p.mu.Unlock()

	sub.Unsubscribe()
	p.changed()
	return ctx.Err() == nil
}

func (p *Panel) apply(gen uint64, event Event) {
	pinned := p.scroll.PinnedToBottom()
	scroll := false

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	switch event.Kind {
	case EventInserted:
		if event.Message == nil || (event.Message.LeadID != 0 && event.Message.LeadID != p.leadID) {
			break
		}
		scroll = p.insertLocked(*event.Message, pinned)
	case EventUpdated:
		if event.Message != nil {
			p.store.ApplyUpdate(*event.Message)
		}
	case EventDeleted:
		p.store.ApplyDelete(event.MessageID)
	}
	p.mu.Unlock()

	if scroll {
		p.scroll.ScrollToBottom()
	}
	p.changed()
}

// 调用方持有 p.mu; pinned 需在加锁前读取, 返回 true 时在解锁后滚动
func (p *Panel) insertLocked(message model.Message, pinned bool) bool {
	if !p.store.ApplyInsert(message) {
		return false
	}
	return p.scroll.OnInsert(pinned)
}

// Send 保存消息并追加到存储; 失败时返回 SendError
func (p *Panel) Send(ctx context.Context, body string, attachments []model.Attachment) (*model.Message, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, ErrEmptyBody
	}

	p.mu.Lock()
	if p.leadID == 0 {
		p.mu.Unlock()
		return nil, ErrNoLead
	}
	if p.sending && p.sendingGen == p.generation {
		p.mu.Unlock()
		return nil, ErrSendInFlight
	}
	gen, leadID := p.generation, p.leadID
	p.sending, p.sendingGen = true, gen
	directory := p.directory
	p.mu.Unlock()
	p.changed()

	defer func() {
		p.mu.Lock()
		if p.sendingGen == gen {
			p.sending = false
		}
		p.mu.Unlock()
		p.changed()
	}()

	mentioned := mention.ExtractMentionedUserIDs(trimmed, directory)

	message, err := p.dl.CreateMessage(ctx, leadID, trimmed, attachments)
	if err != nil {
		sendErr := &SendError{LeadID: leadID, Err: err}
		logger.L.Error("Failed to send message", zap.Uint("leadID", leadID), zap.Error(err))
		p.notify(SeverityDestructive, "Message not sent", sendErr)
		return nil, sendErr
	}

	if len(mentioned) > 0 {
		if err := p.dl.CreateMentions(ctx, message.ID, mentioned); err != nil {
			logger.L.Warn("Failed to create mentions", zap.String("messageID", message.ID), zap.Error(err))
			p.notify(SeverityInfo, "Message sent, but mentions were not saved", err)
		}
	}

	pinned := p.scroll.PinnedToBottom()
	scroll := false
	p.mu.Lock()
	if gen == p.generation {
		scroll = p.insertLocked(*message, pinned)
	}
	p.mu.Unlock()

	if scroll {
		p.scroll.ScrollToBottom()
	}
	return message, nil
}

func (p *Panel) SetDraft(text string) {
	p.mu.Lock()
	p.draft = text
	p.mu.Unlock()
}

func (p *Panel) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// SendDraft 发送当前草稿, 成功后清空, 失败时保留
func (p *Panel) SendDraft(ctx context.Context, attachments []model.Attachment) (*model.Message, error) {
	draft := p.Draft()
	message, err := p.Send(ctx, draft, attachments)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if p.draft == draft {
		p.draft = ""
	}
	p.mu.Unlock()
	p.changed()
	return message, nil
}

// 调用方持有 p.mu
func (p *Panel) ownedLocked(messageID string) error {
	if p.leadID == 0 {
		return ErrNoLead
	}
	existing, ok := p.store.Get(messageID)
	if !ok {
		return ErrUnknownMessage
	}
	if existing.AuthorID != p.userID {
		return ErrNotAuthor
	}
	return nil
}

// Edit 空正文在本地拒绝; 成功后立即合并服务端返回的结果
func (p *Panel) Edit(ctx context.Context, messageID, body string) (*model.Message, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, ErrEmptyBody
	}

	p.mu.Lock()
	if err := p.ownedLocked(messageID); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	gen := p.generation
	p.mu.Unlock()

	updated, err := p.dl.UpdateMessage(ctx, messageID, trimmed)
	if err != nil {
		editErr := &EditError{MessageID: messageID, Err: err}
		logger.L.Error("Failed to edit message", zap.String("messageID", messageID), zap.Error(err))
		p.notify(SeverityDestructive, "Message not updated", editErr)
		return nil, editErr
	}

	p.mu.Lock()
	if gen == p.generation {
		p.store.ApplyUpdate(*updated)
	}
	p.mu.Unlock()
	p.changed()

	return updated, nil
}

// Delete 先在本地移除, 服务端失败时恢复到原位置
func (p *Panel) Delete(ctx context.Context, messageID string) error {
	p.mu.Lock()
	if err := p.ownedLocked(messageID); err != nil {
		p.mu.Unlock()
		return err
	}
	gen := p.generation
	removed, index, ok := p.store.ApplyDelete(messageID)
	p.mu.Unlock()
	p.changed()

	if err := p.dl.DeleteMessage(ctx, messageID); err != nil {
		p.mu.Lock()
		if ok && gen == p.generation {
			p.store.Restore(removed, index)
		}
		p.mu.Unlock()

		deleteErr := &DeleteError{MessageID: messageID, Err: err}
		logger.L.Error("Failed to delete message", zap.String("messageID", messageID), zap.Error(err))
		p.notify(SeverityDestructive, "Message not deleted", deleteErr)
		p.changed()
		return deleteErr
	}
	return nil
}

// DownloadURL 为附件申请一个新的限时地址
func (p *Panel) DownloadURL(ctx context.Context, attachment model.Attachment) (string, error) {
	url, err := DownloadURL(ctx, p.dl, attachment)
	if err != nil {
		p.notify(SeverityDestructive, "Could not open attachment", err)
		return "", err
	}
	return url, nil
}

// Upload 上传文件, 返回的元数据随 Send 一起提交
func (p *Panel) Upload(ctx context.Context, name string, content io.Reader) (*model.Attachment, error) {
	p.mu.Lock()
	leadID := p.leadID
	p.mu.Unlock()
	if leadID == 0 {
		return nil, ErrNoLead
	}

	attachment, err := p.dl.UploadAttachment(ctx, leadID, name, content)
	if err != nil {
		storageErr := &StorageError{Err: err}
		p.notify(SeverityDestructive, "Upload failed", storageErr)
		return nil, storageErr
	}
	return attachment, nil
}

func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Panel) LeadID() uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leadID
}

// Loading 初始加载尚未完成, 与"暂无消息"区分
func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Sending 发送按钮应禁用
func (p *Panel) Sending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sending && p.sendingGen == p.generation
}

// Ready 在当前线索的初始加载完成 (或失败) 后关闭
func (p *Panel) Ready() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *Panel) WaitReady(ctx context.Context) error {
	select {
	case <-p.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Panel) Messages() []model.Message {
	return p.store.Snapshot()
}

func (p *Panel) Directory() []model.DirectoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.DirectoryEntry(nil), p.directory...)
}

// RenderBody 返回带提及高亮的安全HTML
func (p *Panel) RenderBody(body string) string {
	return mention.RenderWithHighlights(body, p.Directory())
}

func (p *Panel) HasUnseenMessages() bool {
	return p.scroll.HasUnseenMessages()
}

func (p *Panel) ScrollToLatest() {
	p.scroll.ScrollToLatest()
	p.changed()
}
