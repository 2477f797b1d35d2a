package leadchat

import "sync"

// PinThreshold 距离底部多少像素以内视为停留在底部
const PinThreshold = 100.0

// Viewport 由视图层实现
type Viewport interface {
	ScrollOffset() float64
	MaxScrollOffset() float64
	ScrollToBottom()
}

// ScrollController 决定新消息到达时自动滚动还是提示有未读
type ScrollController struct {
	mu        sync.Mutex
	viewport  Viewport
	hasUnseen bool
}

func NewScrollController(viewport Viewport) *ScrollController {
	return &ScrollController{viewport: viewport}
}

// PinnedToBottom 每次都根据当前偏移重新计算; 没有视图时视为在底部
func (c *ScrollController) PinnedToBottom() bool {
	if c.viewport == nil {
		return true
	}
	return c.viewport.MaxScrollOffset()-c.viewport.ScrollOffset() <= PinThreshold
}

// ScrollToBottom 不持有任何锁, 视图可以在回调中读取面板状态
func (c *ScrollController) ScrollToBottom() {
	if c.viewport != nil {
		c.viewport.ScrollToBottom()
	}
}

// OnInsert wasPinned 为插入前的 PinnedToBottom; 返回 true 时调用方在释放自己的锁后调用 ScrollToBottom
func (c *ScrollController) OnInsert(wasPinned bool) bool {
	if wasPinned {
		return true
	}
	c.mu.Lock()
	c.hasUnseen = true
	c.mu.Unlock()
	return false
}

func (c *ScrollController) markSeen() {
	c.mu.Lock()
	c.hasUnseen = false
	c.mu.Unlock()
}

// ScrollToLatest 用户点击"查看最新消息"
func (c *ScrollController) ScrollToLatest() {
	c.markSeen()
	c.ScrollToBottom()
}

func (c *ScrollController) OnInitialLoad() {
	c.ScrollToLatest()
}

func (c *ScrollController) HasUnseenMessages() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasUnseen
}
