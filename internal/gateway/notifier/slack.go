package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Slack 通知器：通过 incoming webhook 推送，和 Telegram 共用同一套
// StructuredMessage 渲染结果。
type Slack struct {
	WebhookURL string
	Client     *http.Client
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{WebhookURL: webhookURL, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *Slack) SendText(text string) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("Slack webhook 未配置")
	}
	body, _ := json.Marshal(map[string]string{"text": text})

	req, err := http.NewRequest("POST", s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("slack status=%d", resp.StatusCode)
	}
	return nil
}
