package model

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// TimestampLayout は新規書き込み時のタイムスタンプ形式。小数秒は持たない。
	TimestampLayout = "2006-01-02 15:04:05"
	// timestampLayoutFrac は小数秒付きの旧形式。読み取り互換のためにのみ使用する。
	timestampLayoutFrac = "2006-01-02 15:04:05.999999"
	// MonthLayout は月指定（"YYYY-MM"）の形式。
	MonthLayout = "2006-01"
	// DateLayout は日付キー（"YYYY-MM-DD"）の形式。
	DateLayout = "2006-01-02"
)

// ParseTimestamp はストレージのタイムスタンプ文字列を解析する。
// 挿入経路によって小数秒の有無が異なるため、小数秒なし形式を先に試し、
// 失敗した場合は小数秒付き形式にフォールバックする。
// 両形式とも失敗した場合はデータ不整合としてエラーを返す。
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(timestampLayoutFrac, s); err == nil {
		return t, nil
	}
	return time.Time{}, NewTimestampParseError(s)
}

// FormatTimestamp は時刻をストレージのテキスト表現に変換する。
// 新規書き込みは常に小数秒なしの形式を使う。
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatMonth は時刻から月トークン（"YYYY-MM"）を生成する。
func FormatMonth(t time.Time) string {
	return t.Format(MonthLayout)
}

// ValidMonth は月トークンが"YYYY-MM"形式かどうかを返す。
func ValidMonth(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}

// FormatLocation は位置情報サンプルをストレージのテキスト表現に変換する。
func FormatLocation(lat, lon float64) string {
	return fmt.Sprintf("%s, %s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
	)
}
