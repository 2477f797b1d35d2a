package service

import "errors"

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrEmailTaken           = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidDisplayName   = errors.New("display name must not be blank")
	ErrUserNotFound         = errors.New("user not found")
	ErrLeadNotFound         = errors.New("lead not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrMentionNotFound      = errors.New("mention not found")
	ErrEmptyBody            = errors.New("message body is empty")
	ErrBodyTooLong          = errors.New("message body is too long")
	ErrNotAuthor            = errors.New("only the author may change this message")
	ErrUnknownMentionTarget = errors.New("mention target is not in the mentionable directory")
	ErrInvalidAttachment    = errors.New("invalid attachment reference")
	ErrAttachmentNotFound   = errors.New("attachment not found")
	ErrFileTooLarge         = errors.New("file is too large")
	ErrFileTypeNotAllowed   = errors.New("file type is not allowed")
)
