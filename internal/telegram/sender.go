package telegram

import (
	"context"

	"github.com/hitoshi/kintai/internal/bot"
)

// Sender はボットの返信要求をTelegram APIの呼び出しに変換する。
// bot.Replierとリマインダーの通知先を兼ねる。
type Sender struct {
	client *Client
}

// NewSender はSenderの新しいインスタンスを生成する。
func NewSender(client *Client) *Sender {
	return &Sender{client: client}
}

// Reply はテキストとキーボード種別を受け取り、メッセージを送信する。
// ユーザーIDをそのままチャットIDとして使う（個人チャット前提）。
func (s *Sender) Reply(ctx context.Context, userID int64, text string, keyboard bot.Keyboard) error {
	return s.client.SendMessage(ctx, userID, text, markupFor(keyboard))
}

// SendDocument はファイルを添付ファイルとして送信する。
func (s *Sender) SendDocument(ctx context.Context, userID int64, path string) error {
	return s.client.SendDocument(ctx, userID, path)
}

// Notify はリマインダー通知を送信する。メインメニューを添付する。
func (s *Sender) Notify(ctx context.Context, userID int64, text string) error {
	return s.client.SendMessage(ctx, userID, text, markupFor(bot.KeyboardMain))
}

// 位置情報送信ボタンのラベル。
const buttonShareLocation = "現在地を送信"

// markupFor はキーボード種別を返信キーボードの描画指定に変換する。
// KeyboardNoneの場合はnilを返し、キーボードを添付しない。
func markupFor(keyboard bot.Keyboard) *ReplyKeyboardMarkup {
	switch keyboard {
	case bot.KeyboardMain:
		return &ReplyKeyboardMarkup{
			Keyboard: [][]KeyboardButton{
				{{Text: bot.ActionStartDay}, {Text: bot.ActionEndDay}},
				{{Text: bot.ActionReport}},
			},
			ResizeKeyboard: true,
		}
	case bot.KeyboardConfirmStart:
		return &ReplyKeyboardMarkup{
			Keyboard: [][]KeyboardButton{
				{{Text: bot.ActionConfirmStart}, {Text: bot.ActionCancel}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	case bot.KeyboardConfirmEnd:
		return &ReplyKeyboardMarkup{
			Keyboard: [][]KeyboardButton{
				{{Text: bot.ActionConfirmEnd}, {Text: bot.ActionCancel}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	case bot.KeyboardLocation:
		return &ReplyKeyboardMarkup{
			Keyboard: [][]KeyboardButton{
				{{Text: buttonShareLocation, RequestLocation: true}},
				{{Text: bot.ActionCancel}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	default:
		return nil
	}
}
