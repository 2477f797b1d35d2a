package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"lead-chat/internal/leadchat"
	"lead-chat/internal/leadchat/remote"
	"lead-chat/internal/session"

	"github.com/spf13/cobra"
)

const readyTimeout = 15 * time.Second

type env struct {
	client   *remote.Client
	sessions *session.Manager
}

// loadEnv 恢复会话并创建客户端; requireLogin 为 true 时没有会话直接报错
func loadEnv(cmd *cobra.Command, requireLogin bool) (*env, error) {
	server, _ := cmd.Flags().GetString("server")
	sessionFile, _ := cmd.Flags().GetString("session-file")

	sessions := session.NewManager(nil, session.NewFileStore(sessionFile))
	if err := sessions.Restore(); err != nil {
		return nil, err
	}
	client, err := remote.NewClient(server, sessions)
	if err != nil {
		return nil, err
	}
	if requireLogin {
		if _, err := sessions.Current(); err != nil {
			return nil, fmt.Errorf("%w (run `%s login`)", err, AppName)
		}
	}
	return &env{client: client, sessions: sessions}, nil
}

// writerNotifier 把面板的提示写到 stderr
type writerNotifier struct {
	inbox *leadchat.Inbox
	out   io.Writer
}

func (n *writerNotifier) Notify(note leadchat.Notification) uint64 {
	id := n.inbox.Notify(note)
	if note.Err != nil {
		fmt.Fprintf(n.out, "! %s: %v\n", note.Title, note.Err)
	} else {
		fmt.Fprintf(n.out, "! %s\n", note.Title)
	}
	return id
}

// openPanel 打开线索并等待初始加载完成
func (e *env) openPanel(ctx context.Context, cmd *cobra.Command, leadID uint, onChange func()) (*leadchat.Panel, error) {
	userID, err := e.sessions.UserID()
	if err != nil {
		return nil, err
	}
	panel := leadchat.NewPanel(e.client, leadchat.PanelOptions{
		UserID:   userID,
		Notifier: &writerNotifier{inbox: leadchat.NewInbox(), out: cmd.ErrOrStderr()},
		OnChange: onChange,
	})
	if err := panel.Mount(leadID); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := panel.WaitReady(waitCtx); err != nil {
		panel.Close()
		return nil, fmt.Errorf("timed out loading lead %d: %w", leadID, err)
	}
	return panel, nil
}
