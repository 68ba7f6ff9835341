package service

import "time"

// Clock 统一的时间来源。截止判定和倒计时都经由它取当前时间，
// 测试里换成固定时钟即可推演到点自动交卷等场景。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

var SystemClock Clock = systemClock{}
