package notifier

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram or Slack).
type TextNotifier interface {
	SendText(text string) error
}

// Fanout 把同一条消息广播到多个渠道，单个渠道失败不阻断其余。
type Fanout struct {
	Sinks []TextNotifier
}

func (f Fanout) SendText(text string) error {
	var firstErr error
	for _, sink := range f.Sinks {
		if err := sink.SendText(text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
