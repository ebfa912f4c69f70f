package model

import "math"

// WorkSession は1勤務日の記録を表す。
// EndTimeが空の間は「勤務中（オープン）」であり、同一ユーザーに
// オープンなセッションは同時に高々1件しか存在しない。
// StartTime / EndTime はストレージのテキスト表現（"YYYY-MM-DD HH:MM:SS"、
// 既存データでは小数秒付きの場合がある）をそのまま保持する。
type WorkSession struct {
	ID            string
	UserID        int64
	StartTime     string
	EndTime       string // オープン中は空文字列
	StartLocation string
	EndLocation   string // オープン中は空文字列
}

// IsOpen は終了打刻がまだないセッションかどうかを返す。
func (s *WorkSession) IsOpen() bool {
	return s.EndTime == ""
}

// Hours はセッションの勤務時間（時間単位の小数）を返す。
// オープンなセッション、またはタイムスタンプが解析不能な場合はエラーを返す。
func (s *WorkSession) Hours() (float64, error) {
	if s.IsOpen() {
		return 0, NewSessionStillOpenError(s.ID)
	}

	start, err := ParseTimestamp(s.StartTime)
	if err != nil {
		return 0, err
	}
	end, err := ParseTimestamp(s.EndTime)
	if err != nil {
		return 0, err
	}

	return end.Sub(start).Hours(), nil
}

// RoundHours は時間数を小数第2位に丸める。
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
