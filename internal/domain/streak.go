package domain

import (
	"time"

	"github.com/masoommulla/project-sub001/internal/model"
)

const day = 24 * time.Hour

// UpdateStreak 根据上次打卡时间更新连续天数。
//
// 天数按两次打卡的绝对时间差整除 24 小时计算，而不是按日历日：
// 相差 1 天加一，超过 1 天重置为 1，同一天内保持不变。
// 无论走哪个分支，LastCheckIn 都更新为 now。
func UpdateStreak(u *model.User, now time.Time) {
	if u.LastCheckIn == nil {
		u.Streak = 1
	} else {
		diff := now.Sub(*u.LastCheckIn)
		if diff < 0 {
			diff = -diff
		}
		switch days := int(diff / day); {
		case days == 1:
			u.Streak++
		case days > 1:
			u.Streak = 1
		}
	}
	checkIn := now
	u.LastCheckIn = &checkIn
}
