package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Deliverer hands a finished script off to the delivery channel.
// Delivery is at-least-once; receivers deduplicate by caption.
type Deliverer interface {
	Deliver(ctx context.Context, content, filename, caption string) (string, error)
}

// TelegramDeliverer sends scripts as documents through the Telegram bot API.
type TelegramDeliverer struct {
	token      string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

// NewTelegramDeliverer creates a Telegram delivery channel
func NewTelegramDeliverer(token, chatID string) *TelegramDeliverer {
	return &TelegramDeliverer{
		token:      token,
		chatID:     chatID,
		apiBase:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// telegramResponse is the bot API envelope
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int `json:"message_id"`
	} `json:"result"`
}

// Deliver uploads the script as a document with a caption and returns the
// message id.
func (t *TelegramDeliverer) Deliver(ctx context.Context, content, filename, caption string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", t.chatID); err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("building delivery request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("delivering %s: %w", filename, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading delivery response: %w", err)
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(data, &tgResp); err != nil {
		return "", fmt.Errorf("parsing delivery response: %w", err)
	}
	if !tgResp.OK {
		return "", fmt.Errorf("delivering %s: %s", filename, tgResp.Description)
	}

	return fmt.Sprintf("%d", tgResp.Result.MessageID), nil
}
