package domain

import (
	"github.com/masoommulla/project-sub001/internal/model"
)

// CanAccess 判断调用者能否读写 ownerID 拥有的记录：本人或管理员。
func CanAccess(caller *model.User, ownerID string) bool {
	if caller == nil {
		return false
	}
	return caller.ID == ownerID || caller.Role == model.RoleAdmin
}

// Authorize 在 CanAccess 失败时返回与"不存在"相同的错误，避免泄露记录是否存在。
func Authorize(caller *model.User, ownerID, entity string) error {
	if !CanAccess(caller, ownerID) {
		return NotFound(entity)
	}
	return nil
}

// HasRole 判断调用者是否拥有任一角色。
func HasRole(caller *model.User, roles ...string) bool {
	if caller == nil {
		return false
	}
	for _, r := range roles {
		if caller.Role == r {
			return true
		}
	}
	return false
}

// CanManageTherapist 咨询师资料只能由其本人账号或管理员修改。
func CanManageTherapist(caller *model.User, t *model.Therapist) bool {
	if caller == nil || t == nil {
		return false
	}
	if caller.Role == model.RoleAdmin {
		return true
	}
	return t.UserID != "" && t.UserID == caller.ID
}

// CanAccessConversation 会话仅对参与者与管理员可见。
func CanAccessConversation(caller *model.User, c *model.Conversation) bool {
	if caller == nil || c == nil {
		return false
	}
	return caller.Role == model.RoleAdmin || c.HasParticipant(caller.ID)
}
