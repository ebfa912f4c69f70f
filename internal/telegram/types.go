// Package telegram はTelegram Bot APIとの送受信アダプタを提供する。
// Webhookで受信する更新の型と、メッセージ・添付ファイル送信クライアントを含む。
package telegram

// Update はWebhookで受信する1件の更新を表す。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message は受信メッセージを表す。
type Message struct {
	MessageID int64     `json:"message_id"`
	From      *User     `json:"from"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text"`
	Location  *Location `json:"location"`
}

// User はメッセージの送信者を表す。
type User struct {
	ID int64 `json:"id"`
}

// Chat はメッセージの属するチャットを表す。
type Chat struct {
	ID int64 `json:"id"`
}

// Location は位置情報サンプルを表す。
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReplyKeyboardMarkup は返信キーボードの描画指定。
type ReplyKeyboardMarkup struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

// KeyboardButton は返信キーボードの1ボタン。
type KeyboardButton struct {
	Text            string `json:"text"`
	RequestLocation bool   `json:"request_location,omitempty"`
}

// apiResponse はBot APIの共通レスポンス形式。
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}
