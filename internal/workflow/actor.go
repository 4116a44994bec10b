package workflow

// ── 权限标识 ──

const (
	PermReviewSubmissions = "submissions.review"
	PermDirectUpload      = "submissions.direct_upload"
	PermManageForms       = "forms.manage"
	PermManageRoles       = "roles.manage"
)

// Actor 触发流程动作的操作者，显式贯穿每一次调用
type Actor struct {
	UserID      string
	Name        string
	Permissions []string
}

// Can 判断操作者是否拥有指定权限
func (a Actor) Can(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
