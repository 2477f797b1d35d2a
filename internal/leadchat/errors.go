package leadchat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBody      = errors.New("message body is empty")
	ErrSendInFlight   = errors.New("a send is already in flight")
	ErrNotAuthor      = errors.New("only the author may change this message")
	ErrNoLead         = errors.New("no lead is open")
	ErrUnknownMessage = errors.New("message is not loaded")
)

// FetchError 初始加载失败, 存储保持为空
type FetchError struct {
	LeadID uint
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load messages for lead %d: %v", e.LeadID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError 消息保存失败, 草稿保留
type SendError struct {
	LeadID uint
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send message: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

type EditError struct {
	MessageID string
	Err       error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("failed to edit message %s: %v", e.MessageID, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

// DeleteError 删除失败, 乐观移除的消息已恢复
type DeleteError struct {
	MessageID string
	Err       error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete message %s: %v", e.MessageID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// StorageError 附件上传或下载地址解析失败
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("attachment storage failed: %v", e.Err)
	}
	return fmt.Sprintf("attachment storage failed for %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
