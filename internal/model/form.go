package model

import "formflow/backend/internal/workflow"

// Form 表单表 — 对应 forms
type Form struct {
	FormID      string              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"form_id"`
	Title       string              `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string              `gorm:"type:text"                                      json:"description,omitempty"`
	Status      workflow.FormStatus `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | inactive
	CreatorID   string              `gorm:"type:uuid;not null"                             json:"creator_id"`
	BaseModel

	// 关联
	Fields []FormField `gorm:"foreignKey:FormID;references:FormID;constraint:OnDelete:CASCADE" json:"fields,omitempty"`
	Roles  []Role      `gorm:"many2many:form_roles;foreignKey:FormID;joinForeignKey:FormID;references:RoleID;joinReferences:RoleID" json:"roles,omitempty"`
	Users  []User      `gorm:"many2many:form_users;foreignKey:FormID;joinForeignKey:FormID;references:UserID;joinReferences:UserID" json:"users,omitempty"`
}

// TableName 指定表名
func (Form) TableName() string { return "forms" }

// FieldByID 查找表单下的字段
func (f *Form) FieldByID(fieldID string) (*FormField, bool) {
	for i := range f.Fields {
		if f.Fields[i].FieldID == fieldID {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// FormField 表单字段表 — 对应 form_fields
type FormField struct {
	FieldID   string             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"field_id"`
	FormID    string             `gorm:"type:uuid;not null;index"                       json:"form_id"`
	Label     string             `gorm:"type:varchar(200);not null"                     json:"label"`
	Type      workflow.FieldType `gorm:"type:varchar(20);not null"                      json:"type"` // Word | Excel | PowerPoint | PDF | JPEG | PNG
	SortOrder int                `gorm:"not null;default:0"                             json:"sort_order"`
	Required  bool               `gorm:"not null;default:true"                          json:"required"`
}

// TableName 指定表名
func (FormField) TableName() string { return "form_fields" }
